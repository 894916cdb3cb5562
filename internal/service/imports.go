package service

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/GetThruTools/ThruText-API/internal/csvfile"
	"github.com/GetThruTools/ThruText-API/internal/domain"
	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/thrutext"
)

// ImportLog persists group import attempts.
type ImportLog interface {
	ClaimImport(ctx context.Context, g *domain.GroupImport, force bool) (*domain.GroupImport, error)
	UpdateImport(ctx context.Context, g *domain.GroupImport) error
	GetImport(ctx context.Context, id string) (*domain.GroupImport, error)
	ListImports(ctx context.Context, limit int) ([]*domain.GroupImport, error)
}

// ColumnMapper maps a CSV header row.
type ColumnMapper interface {
	Map(ctx context.Context, header []string) (*MappingResult, error)
}

// GroupCreator creates a contact group from mapped CSV rows.
type GroupCreator interface {
	CreateGroup(ctx context.Context, params thrutext.CreateGroupParams) (*thrutext.Group, error)
}

// ImportRequest describes one CSV file to import as a new group.
type ImportRequest struct {
	GroupName string
	CountryID string
	FileName  string

	// Force imports a file even if identical content already succeeded.
	Force bool
}

// ImportResult is a finished import.
type ImportResult struct {
	Import  *domain.GroupImport `json:"import"`
	Group   *thrutext.Group     `json:"group,omitempty"`
	Mapping *MappingResult      `json:"mapping,omitempty"`
}

// ImportService imports contact CSV files as ThruText groups.
type ImportService struct {
	mapper  ColumnMapper
	groups  GroupCreator
	log     ImportLog
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewImportService creates an import service.
func NewImportService(mapper ColumnMapper, groups GroupCreator, log ImportLog, m *metrics.Metrics, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ImportService{
		mapper:  mapper,
		groups:  groups,
		log:     log,
		metrics: m,
		logger:  logger,
	}
}

// ImportFile reads the CSV at path and imports it. The file name defaults to
// the base name of path.
func (s *ImportService) ImportFile(ctx context.Context, path string, req ImportRequest) (*ImportResult, error) {
	file, err := csvfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if req.FileName == "" {
		req.FileName = filepath.Base(path)
	}
	return s.Import(ctx, file, req)
}

// ImportReader reads CSV text from r and imports it.
func (s *ImportService) ImportReader(ctx context.Context, r io.Reader, req ImportRequest) (*ImportResult, error) {
	file, err := csvfile.Read(r)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, file, req)
}

// Import maps the file's header and creates the group.
//
// Nothing is sent unless the mapping is complete. A file whose content already
// produced a group, or is being uploaded right now, is refused unless req.Force
// is set, since the remote import cannot be undone. Every attempt that reaches
// the remote service is recorded in the import log.
func (s *ImportService) Import(ctx context.Context, file *csvfile.File, req ImportRequest) (*ImportResult, error) {
	req.GroupName = strings.TrimSpace(req.GroupName)
	if req.GroupName == "" {
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"group_name": "is required",
		})
	}

	mapped, err := s.mapper.Map(ctx, file.Header)
	if err != nil {
		s.metrics.ImportFinished("unmapped")
		return &ImportResult{Mapping: mapped}, err
	}

	record, err := newImportRecord(file, req, mapped)
	if err != nil {
		return nil, err
	}
	previous, err := s.log.ClaimImport(ctx, record, req.Force)
	switch {
	case previous != nil:
		s.metrics.ImportFinished("duplicate")
		s.logger.Warn("file already imported",
			"hash", file.Hash,
			"import_id", previous.ID,
			"status", previous.Status,
			"group_id", previous.RemoteGroupID,
		)
		return &ImportResult{Import: previous, Mapping: mapped}, domainerrors.New(domainerrors.CodeAlreadyExists,
			duplicateMessage(previous)).WithDetails([]string{previous.ID})
	case err != nil:
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "record import")
	}

	group, err := s.groups.CreateGroup(ctx, thrutext.CreateGroupParams{
		Name:      req.GroupName,
		CountryID: req.CountryID,
		Mapping:   mapped.Mapping,
		Rows:      file.Rows(),
	})
	if err != nil {
		record.Fail(err)
		s.finish(ctx, record)
		return &ImportResult{Import: record, Mapping: mapped}, remoteError(err, "create group")
	}

	record.Succeed(group.ID)
	s.finish(ctx, record)
	s.logger.Info("imported group",
		"import_id", record.ID,
		"group_id", group.ID,
		"group_name", group.Name,
		"rows", record.Rows,
	)
	return &ImportResult{Import: record, Group: group, Mapping: mapped}, nil
}

func duplicateMessage(previous *domain.GroupImport) string {
	if previous.Status == domain.ImportPending {
		return "file is already being imported"
	}
	return "file already imported as group " + previous.RemoteGroupID
}

// finish stores the final status. The remote outcome already happened, so a
// failure here is logged rather than returned.
func (s *ImportService) finish(ctx context.Context, record *domain.GroupImport) {
	s.metrics.ImportFinished(string(record.Status))
	if err := s.log.UpdateImport(ctx, record); err != nil {
		s.logger.Error("failed to record import outcome",
			"import_id", record.ID,
			"status", record.Status,
			"error", err,
		)
	}
}

// GetImport returns one import record.
func (s *ImportService) GetImport(ctx context.Context, id string) (*domain.GroupImport, error) {
	return s.log.GetImport(ctx, id)
}

// ListImports returns recent imports, newest first.
func (s *ImportService) ListImports(ctx context.Context, limit int) ([]*domain.GroupImport, error) {
	return s.log.ListImports(ctx, limit)
}

func newImportRecord(file *csvfile.File, req ImportRequest, mapped *MappingResult) (*domain.GroupImport, error) {
	custom, err := json.Marshal(mapped.Mapping.Custom)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode custom mapping")
	}
	critical, err := json.Marshal(mapped.Mapping.Critical)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode critical mapping")
	}
	return &domain.GroupImport{
		GroupName:    req.GroupName,
		FileName:     req.FileName,
		ContentHash:  file.Hash,
		Rows:         len(file.Records),
		CustomFields: custom,
		Critical:     critical,
		Status:       domain.ImportPending,
	}, nil
}

// remoteError keeps domain errors (such as validation) as they are and
// classifies everything else as a remote failure.
func remoteError(err error, msg string) error {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		return err
	}
	if thrutext.IsNotFound(err) {
		return domainerrors.Wrap(err, domainerrors.CodeNotFound, msg)
	}
	if domainerrors.Is(err, thrutext.ErrUnauthorized) || domainerrors.Is(err, thrutext.ErrNotLoggedIn) {
		return domainerrors.Wrap(err, domainerrors.CodeUnauthorized, msg)
	}
	return domainerrors.Wrap(err, domainerrors.CodeRemote, msg)
}
