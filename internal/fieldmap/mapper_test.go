package fieldmap

import (
	"strings"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

func scenarioTable() *SynonymTable {
	return tableOf(map[string]string{
		"one":        "code1",
		"code1":      "code1",
		"two":        "code2",
		"code2":      "code2",
		"first":      "first_name",
		"first_name": "first_name",
		"last":       "last_name",
		"last_name":  "last_name",
		"phone":      "phone",
	})
}

func scenarioRegistry() *CodeRegistry {
	return registryOf(map[string]string{"code1": "1", "code2": "2"})
}

func TestMapColumns_EndToEnd(t *testing.T) {
	mapping, err := MapColumns([]string{"first", "one", "last", "two", "phone"}, scenarioTable(), scenarioRegistry())
	require.NoError(t, err)

	assert.Equal(t, []CustomColumn{
		{CustomFieldID: "1", Column: 1},
		{CustomFieldID: "2", Column: 3},
	}, mapping.Custom)
	assert.Equal(t, CriticalMapping{FirstName: 0, LastName: 2, Phone: 4}, mapping.Critical)
}

func TestMapColumns_HeaderCaseIgnored(t *testing.T) {
	mapping, err := MapColumns([]string{"FIRST", "One", "Last", "TWO", "Phone"}, scenarioTable(), scenarioRegistry())
	require.NoError(t, err)
	assert.Len(t, mapping.Custom, 2)
}

func TestMapColumns_CriticalOnly(t *testing.T) {
	table := tableOf(map[string]string{"first": "first_name", "last": "last_name", "phone": "phone"})
	registry := registryOf(map[string]string{"code1": "1"})

	mapping, err := MapColumns([]string{"first", "last", "phone", "code1"}, table, registry)
	require.NoError(t, err)

	assert.Equal(t, CriticalMapping{FirstName: 0, LastName: 1, Phone: 2}, mapping.Critical)
	assert.Empty(t, mapping.Custom)
}

func TestMapColumns_Failures(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		table   *SynonymTable
		wantErr []error
		details []string
	}{
		{
			name:    "two aliases of one field",
			header:  []string{"first", "one", "last", "two", "first_name"},
			wantErr: []error{domainerrors.ErrAmbiguousColumns},
		},
		{
			name:    "same header twice",
			header:  []string{"first", "last", "phone", "phone"},
			wantErr: []error{domainerrors.ErrAmbiguousColumns},
		},
		{
			name:    "missing one critical field",
			header:  []string{"first", "one", "phone"},
			wantErr: []error{domainerrors.ErrMissingCriticalField},
			details: []string{"last_name"},
		},
		{
			name:    "missing every critical field",
			header:  []string{"one", "two"},
			wantErr: []error{domainerrors.ErrMissingCriticalField},
			details: []string{"first_name", "last_name", "phone"},
		},
		{
			name:    "empty header",
			header:  nil,
			wantErr: []error{domainerrors.ErrMissingCriticalField},
		},
		{
			name:   "custom code without id",
			header: []string{"first", "last", "phone", "three"},
			table: tableOf(map[string]string{
				"first": "first_name", "last": "last_name", "phone": "phone", "three": "code3",
			}),
			wantErr: []error{domainerrors.ErrMissingID},
		},
		{
			name:    "every problem reported together",
			header:  []string{"one", "uno", "three", "first"},
			table:   tableOf(map[string]string{"one": "code1", "uno": "code1", "three": "code3", "first": "first_name"}),
			wantErr: []error{domainerrors.ErrAmbiguousColumns, domainerrors.ErrMissingID, domainerrors.ErrMissingCriticalField},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := tt.table
			if table == nil {
				table = scenarioTable()
			}

			mapping, err := MapColumns(tt.header, table, scenarioRegistry())
			require.Error(t, err)
			assert.Nil(t, mapping)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			if tt.details != nil {
				assert.Equal(t, tt.details, domainerrors.DetailList(err))
			}
		})
	}
}

func TestMapColumns_RequiresSetup(t *testing.T) {
	tests := []struct {
		name     string
		table    *SynonymTable
		registry *CodeRegistry
	}{
		{"nil table", nil, scenarioRegistry()},
		{"nil registry", scenarioTable(), nil},
		{"empty table", NewSynonymTable(nil), scenarioRegistry()},
		{"empty registry", scenarioTable(), NewCodeRegistry(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping, err := MapColumns([]string{"first", "last", "phone"}, tt.table, tt.registry)
			assert.Nil(t, mapping)
			assert.ErrorIs(t, err, domainerrors.ErrSetupRequired)
		})
	}
}

// Unknown headers never change the outcome, wherever they appear.
func TestMapColumns_IgnoresNoise(t *testing.T) {
	faker := gofakeit.New(20240611)
	table := scenarioTable()
	registry := scenarioRegistry()
	known := []string{"first", "one", "last", "two", "phone"}

	for range 50 {
		var header []string
		positions := make(map[string]int)
		for _, h := range known {
			for range faker.IntRange(0, 3) {
				header = append(header, noiseHeader(faker, table))
			}
			positions[h] = len(header)
			header = append(header, h)
		}

		mapping, err := MapColumns(header, table, registry)
		require.NoError(t, err, header)

		assert.Equal(t, CriticalMapping{
			FirstName: positions["first"],
			LastName:  positions["last"],
			Phone:     positions["phone"],
		}, mapping.Critical)
		assert.Equal(t, []CustomColumn{
			{CustomFieldID: "1", Column: positions["one"]},
			{CustomFieldID: "2", Column: positions["two"]},
		}, mapping.Custom)
		assertDisjoint(t, mapping)
	}
}

func noiseHeader(faker *gofakeit.Faker, table *SynonymTable) string {
	for {
		h := strings.Join([]string{faker.BuzzWord(), faker.Word()}, " ")
		if _, ok := table.Lookup(h); !ok {
			return h
		}
	}
}

func TestMapColumns_Parallel(t *testing.T) {
	table := scenarioTable()
	registry := scenarioRegistry()
	header := []string{"phone", "two", "last", "one", "first"}

	var wg sync.WaitGroup
	results := make([]*ColumnMapping, 16)
	for i := range results {
		wg.Go(func() {
			m, err := MapColumns(header, table, registry)
			if err == nil {
				results[i] = m
			}
		})
	}
	wg.Wait()

	for _, m := range results {
		require.NotNil(t, m)
		assert.Equal(t, results[0], m)
		assertDisjoint(t, m)
	}
}

func TestUnmatchedColumns(t *testing.T) {
	got := UnmatchedColumns([]string{"first", "zip", "one", "Email"}, scenarioTable())
	assert.Equal(t, []int{1, 3}, got)
}

func assertDisjoint(t *testing.T, m *ColumnMapping) {
	t.Helper()
	seen := make(map[int]bool)
	for _, col := range m.Columns() {
		assert.False(t, seen[col], "column %d used twice", col)
		seen[col] = true
	}
}
