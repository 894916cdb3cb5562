// Package service holds the field mapping and group import workflows shared by
// the HTTP API and the command line tools.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
	"github.com/GetThruTools/ThruText-API/internal/metrics"
	"github.com/GetThruTools/ThruText-API/internal/suggest"
)

// FieldOptions locates the synonym file and the registry cache entry.
type FieldOptions struct {
	SynonymsPath string
	CacheKey     string
}

// fieldState is one reconciled session plus the suggestion index built from it.
// It is replaced as a whole, never modified.
type fieldState struct {
	session *fieldmap.Session
	suggest *suggest.Index
}

// FieldService owns the active field mapping session.
//
// Mapping reads the current session without locking. Reload builds a complete
// new session and swaps it in only if setup succeeded, so a failed reload
// leaves the previous session serving.
type FieldService struct {
	opts      FieldOptions
	cache     fieldmap.Cache
	directory fieldmap.FieldDirectory
	metrics   *metrics.Metrics
	logger    *slog.Logger

	current  atomic.Pointer[fieldState]
	reloadMu sync.Mutex
}

// NewFieldService creates a field service. No session is loaded until Reload.
func NewFieldService(opts FieldOptions, cache fieldmap.Cache, directory fieldmap.FieldDirectory, m *metrics.Metrics, logger *slog.Logger) *FieldService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FieldService{
		opts:      opts,
		cache:     cache,
		directory: directory,
		metrics:   m,
		logger:    logger,
	}
}

// FieldStatus summarizes the active session.
type FieldStatus struct {
	Ready    bool                                    `json:"ready"`
	Synonyms int                                     `json:"synonyms"`
	Codes    map[fieldmap.FieldCode]fieldmap.FieldID `json:"codes,omitempty"`
	LoadedAt time.Time                               `json:"loaded_at,omitzero"`
}

// ReloadResult is the outcome of one setup run.
type ReloadResult struct {
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
	Synonyms int      `json:"synonyms"`
	Codes    int      `json:"codes"`
}

// MappingResult is a column mapping plus suggestions for the headers that did
// not resolve. Mapping is nil when mapping failed.
type MappingResult struct {
	Mapping     *fieldmap.ColumnMapping     `json:"mapping,omitempty"`
	Unmatched   []int                       `json:"unmatched"`
	Suggestions []suggest.ColumnSuggestions `json:"suggestions"`
}

// Session returns the active session, or nil before the first successful reload.
func (s *FieldService) Session() *fieldmap.Session {
	st := s.current.Load()
	if st == nil {
		return nil
	}
	return st.session
}

// Status describes the active session.
func (s *FieldService) Status() FieldStatus {
	session := s.Session()
	if session == nil {
		return FieldStatus{}
	}
	return FieldStatus{
		Ready:    true,
		Synonyms: session.Table().Len(),
		Codes:    session.Registry().IDs(),
		LoadedAt: session.LoadedAt,
	}
}

// Reload runs setup and, on success, makes the new session active. force
// skips the cached registry. Concurrent reloads run one at a time.
func (s *FieldService) Reload(ctx context.Context, force bool) (*ReloadResult, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	session, diags, err := fieldmap.Setup(ctx, fieldmap.SetupOptions{
		SynonymsPath: s.opts.SynonymsPath,
		Cache:        s.cache,
		CacheKey:     s.opts.CacheKey,
		Directory:    s.directory,
		ForceRefresh: force,
		Logger:       s.logger,
	})

	result := &ReloadResult{Warnings: diags.Warnings, Errors: diags.Messages()}
	if err != nil {
		s.metrics.SetupFinished(err, 0, 0)
		s.logger.Error("field mapping reload failed",
			"errors", len(result.Errors),
			"duration", time.Since(start),
			"kept_previous", s.Session() != nil,
		)
		return result, err
	}

	idx, suggestErr := suggest.New(session.Table(), s.logger)
	if suggestErr != nil {
		s.logger.Warn("suggestion index unavailable", "error", suggestErr)
	}

	previous := s.current.Swap(&fieldState{session: session, suggest: idx})
	if previous != nil && previous.suggest != nil {
		_ = previous.suggest.Close()
	}

	result.Synonyms = session.Table().Len()
	result.Codes = session.Registry().Len()
	s.metrics.SetupFinished(nil, result.Synonyms, result.Codes)
	s.logger.Info("field mapping reloaded",
		"synonyms", result.Synonyms,
		"codes", result.Codes,
		"force", force,
		"duration", time.Since(start),
	)
	return result, nil
}

// Map maps header against the active session. The result carries suggestions
// for unmatched headers even when mapping fails.
func (s *FieldService) Map(ctx context.Context, header []string) (*MappingResult, error) {
	st := s.current.Load()
	if st == nil {
		err := domainerrors.SetupRequired("field mapping has not been set up")
		s.metrics.MappingFinished(err)
		return nil, err
	}

	mapping, err := st.session.Map(header)
	s.metrics.MappingFinished(err)

	result := &MappingResult{
		Mapping:   mapping,
		Unmatched: fieldmap.UnmatchedColumns(header, st.session.Table()),
	}
	if st.suggest != nil && len(result.Unmatched) > 0 {
		suggestions, suggestErr := st.suggest.Columns(ctx, header, suggest.DefaultLimit)
		if suggestErr != nil {
			// The index may have been closed by a concurrent reload.
			s.logger.Debug("suggestions skipped", "error", suggestErr)
		}
		result.Suggestions = suggestions
	}

	if err != nil {
		s.logger.Info("column mapping rejected",
			"code", domainerrors.CodeOf(err),
			"details", domainerrors.DetailList(err),
			"unmatched", len(result.Unmatched),
		)
		return result, err
	}
	return result, nil
}

// Close releases the suggestion index.
func (s *FieldService) Close() error {
	st := s.current.Swap(nil)
	if st == nil || st.suggest == nil {
		return nil
	}
	return st.suggest.Close()
}
