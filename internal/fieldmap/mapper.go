package fieldmap

import (
	"errors"
	"fmt"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// CustomColumn assigns a CSV column to a remote custom field.
type CustomColumn struct {
	CustomFieldID FieldID `json:"custom_field_id"`
	Column        int     `json:"column"`
}

// CriticalMapping assigns each critical field code to a CSV column.
type CriticalMapping map[FieldCode]int

// ColumnMapping is the result of mapping one header row. Custom entries follow
// column order; no column appears twice across both parts.
type ColumnMapping struct {
	Custom   []CustomColumn  `json:"custom"`
	Critical CriticalMapping `json:"critical"`
}

// Columns returns every column index used by the mapping.
func (m *ColumnMapping) Columns() []int {
	cols := make([]int, 0, len(m.Custom)+len(m.Critical))
	for _, c := range m.Custom {
		cols = append(cols, c.Column)
	}
	for _, code := range criticalCodes {
		if col, ok := m.Critical[code]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// MapColumns resolves a CSV header row against a reconciled table and registry.
//
// Headers are scanned left to right. Unknown headers are skipped. Two headers that
// resolve to the same code, a custom code without a registered id, or a missing
// critical field all fail the whole mapping and nil is returned; the bulk import
// this feeds cannot be undone, so a partial mapping is never produced. Every
// offending column and field is reported, not only the first.
//
// MapColumns only reads table and registry and may be called concurrently.
func MapColumns(header []string, table *SynonymTable, registry *CodeRegistry) (*ColumnMapping, error) {
	if table.Len() == 0 || registry.Len() == 0 {
		return nil, domainerrors.SetupRequired("synonym table and code registry must be set up before mapping columns")
	}

	mapping := &ColumnMapping{
		Custom:   []CustomColumn{},
		Critical: make(CriticalMapping, len(criticalCodes)),
	}
	assigned := make(map[FieldCode]int)

	var (
		duplicates []string
		missingIDs []string
	)

	for i, raw := range header {
		code, ok := table.Lookup(raw)
		if !ok {
			continue
		}

		if first, taken := assigned[code]; taken {
			duplicates = append(duplicates, fmt.Sprintf("%s (columns %d and %d)", code, first, i))
			continue
		}
		assigned[code] = i

		if code.IsCritical() {
			mapping.Critical[code] = i
			continue
		}

		id, ok := registry.ID(code)
		if !ok {
			missingIDs = append(missingIDs, string(code))
			continue
		}
		mapping.Custom = append(mapping.Custom, CustomColumn{CustomFieldID: id, Column: i})
	}

	var missingCritical []string
	for _, code := range criticalCodes {
		if _, ok := mapping.Critical[code]; !ok {
			missingCritical = append(missingCritical, string(code))
		}
	}

	var errs []error
	if len(duplicates) > 0 {
		errs = append(errs, domainerrors.AmbiguousColumns(duplicates))
	}
	for _, code := range missingIDs {
		errs = append(errs, domainerrors.MissingID(code))
	}
	if len(missingCritical) > 0 {
		errs = append(errs, domainerrors.MissingCriticalField(missingCritical))
	}

	switch len(errs) {
	case 0:
		return mapping, nil
	case 1:
		return nil, errs[0]
	default:
		return nil, errors.Join(errs...)
	}
}

// UnmatchedColumns returns the indexes of headers the table does not resolve.
func UnmatchedColumns(header []string, table *SynonymTable) []int {
	var out []int
	for i, raw := range header {
		if _, ok := table.Lookup(raw); !ok {
			out = append(out, i)
		}
	}
	return out
}
