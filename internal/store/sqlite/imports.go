package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/GetThruTools/ThruText-API/internal/domain"
	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// importColumns is the ordered list of columns selected in import queries.
// Must match the scan order in scanImport.
const importColumns = `id, created_at, updated_at, group_name, file_name, content_hash,
	remote_group_id, row_count, custom_fields, critical, status, error`

func scanImport(scanner interface{ Scan(dest ...any) error }) (*domain.GroupImport, error) {
	var g domain.GroupImport

	var (
		createdAt     string
		updatedAt     string
		fileName      sql.NullString
		remoteGroupID sql.NullString
		customFields  string
		critical      string
		status        string
		errMsg        sql.NullString
	)

	err := scanner.Scan(
		&g.ID,
		&createdAt,
		&updatedAt,
		&g.GroupName,
		&fileName,
		&g.ContentHash,
		&remoteGroupID,
		&g.Rows,
		&customFields,
		&critical,
		&status,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	g.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	g.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	g.FileName = fileName.String
	g.RemoteGroupID = remoteGroupID.String
	g.CustomFields = []byte(customFields)
	g.Critical = []byte(critical)
	g.Status = domain.ImportStatus(status)
	g.Error = errMsg.String

	return &g, nil
}

// ClaimImport records g as a new import of its content. Unless force is set,
// an earlier import of the same content hash that is still pending or has
// succeeded blocks the claim: it is returned along with an ALREADY_EXISTS
// error and nothing is written. The check and the insert share a transaction,
// so of several concurrent claims for one hash exactly one wins.
func (s *Store) ClaimImport(ctx context.Context, g *domain.GroupImport, force bool) (*domain.GroupImport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if !force {
		existing, err := findActiveImport(ctx, tx, g.ContentHash)
		if err == nil {
			return existing, domainerrors.AlreadyExists("content already claimed by import " + existing.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	if err := insertImport(ctx, tx, g); err != nil {
		return nil, err
	}
	return nil, tx.Commit()
}

// insertImport fills a missing ID with a UUID and missing timestamps with the
// current time.
func insertImport(ctx context.Context, tx *sql.Tx, g *domain.GroupImport) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.InitTimestamps()
	}
	if g.Status == "" {
		g.Status = domain.ImportPending
	}
	if !g.Status.Valid() {
		return domainerrors.Validationf("unknown import status %q", g.Status)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO group_imports (
			id, created_at, updated_at, group_name, file_name, content_hash,
			remote_group_id, row_count, custom_fields, critical, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID,
		formatTime(g.CreatedAt),
		formatTime(g.UpdatedAt),
		g.GroupName,
		nullString(g.FileName),
		g.ContentHash,
		nullString(g.RemoteGroupID),
		g.Rows,
		jsonOr(g.CustomFields, "[]"),
		jsonOr(g.Critical, "{}"),
		string(g.Status),
		nullString(g.Error),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domainerrors.AlreadyExists("import " + g.ID + " already recorded")
		}
		return err
	}
	return nil
}

// UpdateImport stores the outcome fields of an existing import.
func (s *Store) UpdateImport(ctx context.Context, g *domain.GroupImport) error {
	if !g.Status.Valid() {
		return domainerrors.Validationf("unknown import status %q", g.Status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE group_imports
		SET updated_at = ?, remote_group_id = ?, status = ?, error = ?
		WHERE id = ?`,
		formatTime(g.UpdatedAt),
		nullString(g.RemoteGroupID),
		string(g.Status),
		nullString(g.Error),
		g.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.NotFoundf("import %s not found", g.ID)
	}
	return nil
}

// GetImport retrieves an import by ID.
func (s *Store) GetImport(ctx context.Context, id string) (*domain.GroupImport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+importColumns+` FROM group_imports WHERE id = ?`, id)

	g, err := scanImport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("import %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// findActiveImport returns the most recent import of the given content hash
// that is pending or succeeded, or sql.ErrNoRows.
func findActiveImport(ctx context.Context, tx *sql.Tx, contentHash string) (*domain.GroupImport, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+importColumns+` FROM group_imports
		WHERE content_hash = ? AND status IN (?, ?)
		ORDER BY created_at DESC LIMIT 1`,
		contentHash, string(domain.ImportPending), string(domain.ImportSucceeded))
	return scanImport(row)
}

// ListImports returns up to limit imports, newest first.
func (s *Store) ListImports(ctx context.Context, limit int) ([]*domain.GroupImport, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+importColumns+` FROM group_imports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.GroupImport
	for rows.Next() {
		g, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func jsonOr(data []byte, fallback string) string {
	if len(data) == 0 {
		return fallback
	}
	return string(data)
}
