package fieldmap

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/normalize"
)

// RemoteField is one custom field as reported by the remote service.
type RemoteField struct {
	Code string
	ID   FieldID
}

// FieldDirectory lists the custom fields defined on the remote account.
type FieldDirectory interface {
	RemoteFields(ctx context.Context) ([]RemoteField, error)
}

// Cache stores single serialized documents by key.
// A missing key is reported as found == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, found bool, err error)
	Put(ctx context.Context, key string, data []byte) error
}

// CodeRegistry maps field codes to remote custom field ids.
// Critical codes carry the NoID sentinel.
type CodeRegistry struct {
	ids map[FieldCode]FieldID
}

// NewCodeRegistry builds a registry from code -> id pairs, lowercasing codes.
// Codes that only differ in case resolve to the id of the last one in sorted
// order; callers reading untrusted documents check lowercaseCollision first.
func NewCodeRegistry(ids map[FieldCode]FieldID) *CodeRegistry {
	r := &CodeRegistry{ids: make(map[FieldCode]FieldID, len(ids))}
	for _, code := range slices.Sorted(maps.Keys(ids)) {
		r.ids[FieldCode(normalize.Key(string(code)))] = ids[code]
	}
	return r
}

// lowercaseCollision returns an error naming the first pair of codes that
// lowercase to the same key but carry different ids.
func lowercaseCollision(ids map[FieldCode]FieldID) error {
	seen := make(map[FieldCode]FieldCode, len(ids))
	for _, code := range slices.Sorted(maps.Keys(ids)) {
		key := FieldCode(normalize.Key(string(code)))
		if prev, ok := seen[key]; ok && ids[prev] != ids[code] {
			return fmt.Errorf("codes %q and %q both map to %q with different ids", prev, code, key)
		}
		seen[key] = code
	}
	return nil
}

// ID returns the remote id registered for code.
func (r *CodeRegistry) ID(code FieldCode) (FieldID, bool) {
	if r == nil {
		return "", false
	}
	id, ok := r.ids[code]
	return id, ok
}

// Has reports whether code is registered.
func (r *CodeRegistry) Has(code FieldCode) bool {
	_, ok := r.ID(code)
	return ok
}

// Len returns the number of registered codes.
func (r *CodeRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}

// Codes returns every registered code, sorted.
func (r *CodeRegistry) Codes() []FieldCode {
	return slices.Sorted(maps.Keys(r.ids))
}

// IDs returns a copy of the code -> id mapping.
func (r *CodeRegistry) IDs() map[FieldCode]FieldID {
	return maps.Clone(r.ids)
}

// LoadCachedRegistry decodes a previously persisted registry.
// It fails with NOT_FOUND when the cache has no document under key and with
// CACHE_CORRUPT when the document cannot be decoded or is empty.
func LoadCachedRegistry(ctx context.Context, cache Cache, key string) (*CodeRegistry, error) {
	data, found, err := cache.Get(ctx, key)
	if err != nil {
		return nil, domainerrors.CacheCorrupt(key, err)
	}
	if !found {
		return nil, domainerrors.NotFoundf("no cached registry under %s", key)
	}

	var ids map[FieldCode]FieldID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, domainerrors.CacheCorrupt(key, err)
	}
	if len(ids) == 0 {
		return nil, domainerrors.CacheCorrupt(key, fmt.Errorf("document has no codes"))
	}
	if err := lowercaseCollision(ids); err != nil {
		return nil, domainerrors.CacheCorrupt(key, err)
	}

	return NewCodeRegistry(ids), nil
}

// RefreshRegistry rebuilds the registry from the remote field directory and adds
// every critical code with the NoID sentinel.
func RefreshRegistry(ctx context.Context, directory FieldDirectory) (*CodeRegistry, error) {
	fields, err := directory.RemoteFields(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeRemote, "list custom fields")
	}

	ids := make(map[FieldCode]FieldID, len(fields)+len(criticalCodes))
	for _, f := range fields {
		code := FieldCode(normalize.Key(f.Code))
		if code == "" {
			continue
		}
		ids[code] = f.ID
	}
	for _, code := range criticalCodes {
		ids[code] = NoID
	}

	return &CodeRegistry{ids: ids}, nil
}

// Persist writes the registry to cache under key.
func (r *CodeRegistry) Persist(ctx context.Context, cache Cache, key string) error {
	data, err := json.Marshal(r.ids, json.Deterministic(true))
	if err != nil {
		return domainerrors.WriteError(key, err)
	}
	if err := cache.Put(ctx, key, data); err != nil {
		return domainerrors.WriteError(key, err)
	}
	return nil
}

// GetOrRefreshRegistry returns the cached registry when one is usable, otherwise
// refreshes it from the directory and persists the result. A failed persist is
// logged and does not fail the call.
func GetOrRefreshRegistry(ctx context.Context, cache Cache, key string, directory FieldDirectory, logger *slog.Logger) (*CodeRegistry, error) {
	registry, err := LoadCachedRegistry(ctx, cache, key)
	if err == nil {
		logger.Debug("loaded cached code registry", "key", key, "codes", registry.Len())
		return registry, nil
	}
	logger.Info("cached code registry unavailable, refreshing", "key", key, "reason", err)

	return refreshAndPersist(ctx, cache, key, directory, logger)
}

func refreshAndPersist(ctx context.Context, cache Cache, key string, directory FieldDirectory, logger *slog.Logger) (*CodeRegistry, error) {
	registry, err := RefreshRegistry(ctx, directory)
	if err != nil {
		return nil, err
	}
	logger.Info("refreshed code registry", "codes", registry.Len())

	if err := registry.Persist(ctx, cache, key); err != nil {
		logger.Warn("failed to persist code registry", "key", key, "error", err)
	}
	return registry, nil
}
