package fieldmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

func TestCompareIDsToSynonyms(t *testing.T) {
	t.Run("registry code without synonyms only warns", func(t *testing.T) {
		table := tableOf(map[string]string{"one": "code1", "code1": "code1"})
		registry := registryOf(map[string]string{"code1": "1", "code2": "2"})

		diags := CompareIDsToSynonyms(table, registry)
		assert.True(t, diags.OK())
		require.Len(t, diags.Warnings, 1)
		assert.Contains(t, diags.Warnings[0], "code2")
	})

	t.Run("table code missing from registry fails", func(t *testing.T) {
		table := tableOf(map[string]string{
			"one":    "code1",
			"quatro": "code4",
			"cinco":  "code5",
		})
		registry := registryOf(map[string]string{"code1": "1"})

		diags := CompareIDsToSynonyms(table, registry)
		require.False(t, diags.OK())
		assert.ErrorIs(t, diags.Err(), domainerrors.ErrCoverageMissing)
		assert.Equal(t, []string{"code4", "code5"}, domainerrors.DetailList(diags.Errors[0]))
	})
}

func TestReconcileIDsCodesSynonyms(t *testing.T) {
	t.Run("inserts reflexive synonyms", func(t *testing.T) {
		table := tableOf(map[string]string{"one": "code1", "two": "code2"})
		registry := registryOf(map[string]string{"code1": "1", "code2": "2", "code3": "3"})

		diags := ReconcileIDsCodesSynonyms(table, registry)
		require.True(t, diags.OK())

		for _, code := range registry.Codes() {
			got, ok := table.Lookup(string(code))
			require.True(t, ok, code)
			assert.Equal(t, code, got)
		}
	})

	t.Run("code name claimed by another code fails", func(t *testing.T) {
		table := tableOf(map[string]string{
			"one":   "code1",
			"two":   "code2",
			"code3": "code1",
			"code4": "code2",
		})
		registry := registryOf(map[string]string{"code1": "1", "code2": "2", "code3": "3", "code4": "4"})

		diags := ReconcileIDsCodesSynonyms(table, registry)
		require.False(t, diags.OK())
		assert.ErrorIs(t, diags.Err(), domainerrors.ErrReconciliationAmbiguity)
		assert.Equal(t, []string{
			"code3 is a synonym of code1",
			"code4 is a synonym of code2",
		}, domainerrors.DetailList(diags.Errors[0]))
	})
}

func TestReconcile(t *testing.T) {
	t.Run("runs both checks", func(t *testing.T) {
		table := tableOf(map[string]string{
			"one":    "code1",
			"two":    "code2",
			"code3":  "code1",
			"quatro": "code9",
		})
		registry := registryOf(map[string]string{"code1": "1", "code2": "2", "code3": "3"})

		diags, err := Reconcile(table, registry)
		require.Error(t, err)
		assert.ErrorIs(t, err, domainerrors.ErrCoverageMissing)
		assert.ErrorIs(t, err, domainerrors.ErrReconciliationAmbiguity)
		assert.Len(t, diags.Errors, 2)
	})

	t.Run("warnings alone succeed", func(t *testing.T) {
		table := tableOf(map[string]string{"one": "code1"})
		registry := registryOf(map[string]string{"code1": "1", "code2": "2"})

		diags, err := Reconcile(table, registry)
		require.NoError(t, err)
		assert.NotEmpty(t, diags.Warnings)

		got, ok := table.Lookup("code2")
		require.True(t, ok)
		assert.Equal(t, FieldCode("code2"), got)
	})

	t.Run("requires both inputs", func(t *testing.T) {
		_, err := Reconcile(nil, registryOf(map[string]string{"code1": "1"}))
		assert.ErrorIs(t, err, domainerrors.ErrSetupRequired)
	})
}
