package fieldmap

import (
	"context"
	"log/slog"
	"time"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// DefaultCacheKey is the cache key the code registry is persisted under.
const DefaultCacheKey = "custom_field_codes.json"

// SetupOptions configures one setup run.
type SetupOptions struct {
	SynonymsPath string
	Cache        Cache
	CacheKey     string
	Directory    FieldDirectory

	// ForceRefresh skips the cached registry and always asks the directory.
	ForceRefresh bool

	Logger *slog.Logger
}

// Session is a reconciled synonym table and code registry, ready for mapping.
// A Session is never mutated after Setup returns it.
type Session struct {
	table    *SynonymTable
	registry *CodeRegistry
	LoadedAt time.Time
}

// NewSession wraps an already reconciled table and registry.
func NewSession(table *SynonymTable, registry *CodeRegistry) *Session {
	return &Session{table: table, registry: registry, LoadedAt: time.Now()}
}

// Table returns the session's synonym table.
func (s *Session) Table() *SynonymTable {
	if s == nil {
		return nil
	}
	return s.table
}

// Registry returns the session's code registry.
func (s *Session) Registry() *CodeRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

// Map maps header against the session.
func (s *Session) Map(header []string) (*ColumnMapping, error) {
	if s == nil {
		return nil, domainerrors.SetupRequired("setup has not completed")
	}
	return MapColumns(header, s.table, s.registry)
}

// Setup loads the synonym table, obtains the code registry and reconciles the two.
//
// All four stages run even after a failure so that one invocation reports every
// problem. A stage whose input could not be produced counts as failed. Setup
// returns a session only when no stage failed.
func Setup(ctx context.Context, opts SetupOptions) (*Session, *Diagnostics, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	key := opts.CacheKey
	if key == "" {
		key = DefaultCacheKey
	}

	all := &Diagnostics{}
	failed := 0

	// Stage 1: synonyms.
	table, diags, err := LoadSynonyms(opts.SynonymsPath)
	diags.Log(logger, "load_synonyms")
	all.Merge(diags)
	if err != nil {
		if diags.OK() {
			all.fail(err)
		}
		logger.Error("synonym table failed to load", "path", opts.SynonymsPath, "error", err)
		failed++
	} else {
		logger.Info("loaded synonym table", "path", opts.SynonymsPath, "synonyms", table.Len(), "warnings", len(diags.Warnings))
	}

	// Stage 2: registry.
	var registry *CodeRegistry
	switch {
	case opts.Directory == nil && opts.Cache == nil:
		err = domainerrors.SetupRequired("neither a registry cache nor a field directory is configured")
	case opts.ForceRefresh || opts.Cache == nil:
		if opts.Directory == nil {
			err = domainerrors.SetupRequired("registry refresh requested without a field directory")
			break
		}
		if opts.Cache == nil {
			registry, err = RefreshRegistry(ctx, opts.Directory)
		} else {
			registry, err = refreshAndPersist(ctx, opts.Cache, key, opts.Directory, logger)
		}
	case opts.Directory == nil:
		registry, err = LoadCachedRegistry(ctx, opts.Cache, key)
	default:
		registry, err = GetOrRefreshRegistry(ctx, opts.Cache, key, opts.Directory, logger)
	}
	if err != nil {
		all.fail(err)
		logger.Error("code registry unavailable", "error", err)
		failed++
	}

	// Stages 3 and 4 need both inputs.
	if table == nil || registry == nil {
		failed += 2
		logger.Error("reconciliation skipped", "stages_failed", failed)
		return nil, all, setupFailed(failed, all)
	}

	coverage := CompareIDsToSynonyms(table, registry)
	coverage.Log(logger, "compare_ids_to_synonyms")
	all.Merge(coverage)
	if !coverage.OK() {
		failed++
	}

	reflexive := ReconcileIDsCodesSynonyms(table, registry)
	reflexive.Log(logger, "reconcile_ids_codes_synonyms")
	all.Merge(reflexive)
	if !reflexive.OK() {
		failed++
	}

	if failed > 0 {
		return nil, all, setupFailed(failed, all)
	}

	logger.Info("field mapping setup complete",
		"synonyms", table.Len(),
		"codes", registry.Len(),
		"warnings", len(all.Warnings),
	)
	return NewSession(table, registry), all, nil
}

func setupFailed(stages int, diags *Diagnostics) error {
	return domainerrors.Wrapf(diags.Err(), domainerrors.CodeSetupRequired,
		"setup failed: %d of 4 stages reported errors", stages).
		WithDetails(diags.Messages())
}
