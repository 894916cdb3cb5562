package api

import (
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
	"github.com/GetThruTools/ThruText-API/internal/service"
)

func TestGetFieldStatus(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/fields")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[service.FieldStatus](t, resp.Body.Bytes()).Ready)

	ts.reload(t)

	resp = ts.api.Get("/api/v1/fields")
	require.Equal(t, http.StatusOK, resp.Code)
	status := decode[service.FieldStatus](t, resp.Body.Bytes())
	assert.True(t, status.Ready)
	assert.Equal(t, 10, status.Synonyms)
	assert.Len(t, status.Codes, 5)
	assert.EqualValues(t, "1", status.Codes["code1"])
	assert.False(t, status.LoadedAt.IsZero())
}

func TestReloadFields(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/fields/reload", map[string]any{"force": true})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	result := decode[service.ReloadResult](t, resp.Body.Bytes())
	assert.Empty(t, result.Errors)
	assert.Equal(t, 5, result.Codes)
	assert.Equal(t, 10, result.Synonyms)
}

func TestReloadFields_FailureKeepsSession(t *testing.T) {
	ts := setupTestServer(t)
	ts.reload(t)

	require.NoError(t, os.WriteFile(ts.synonymsPath, []byte("code1: [zip]\ncode2: [zip]\n"), 0o644))

	resp := ts.api.Post("/api/v1/fields/reload", map[string]any{})
	require.Equal(t, http.StatusServiceUnavailable, resp.Code, resp.Body.String())

	body := decode[errorBody](t, resp.Body.Bytes())
	assert.Equal(t, "SETUP_REQUIRED", body.Code)
	errs, ok := body.detail("errors").([]any)
	require.True(t, ok, "details carry the setup diagnostics")
	assert.NotEmpty(t, errs)

	resp = ts.api.Get("/api/v1/fields")
	assert.True(t, decode[service.FieldStatus](t, resp.Body.Bytes()).Ready)
}

func TestMapColumns(t *testing.T) {
	ts := setupTestServer(t)
	ts.reload(t)

	resp := ts.api.Post("/api/v1/mappings", map[string]any{
		"header": []string{"first", "one", "last", "two", "phone"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	result := decode[service.MappingResult](t, resp.Body.Bytes())
	require.NotNil(t, result.Mapping)
	assert.Equal(t, []fieldmap.CustomColumn{
		{CustomFieldID: "1", Column: 1},
		{CustomFieldID: "2", Column: 3},
	}, result.Mapping.Custom)
	assert.Equal(t, fieldmap.CriticalMapping{"first_name": 0, "last_name": 2, "phone": 4}, result.Mapping.Critical)
	assert.Empty(t, result.Unmatched)
	assert.Empty(t, result.Suggestions)

	// Custom field ids go out as numbers, the way ThruText sends them.
	assert.Contains(t, resp.Body.String(), `"custom_field_id":1`)
}

func TestMapColumns_BeforeSetup(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/mappings", map[string]any{"header": []string{"first"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "SETUP_REQUIRED", decode[errorBody](t, resp.Body.Bytes()).Code)
}

func TestMapColumns_Rejected(t *testing.T) {
	ts := setupTestServer(t)
	ts.reload(t)

	tests := []struct {
		name       string
		header     []string
		wantStatus int
		wantCode   string
		wantFields []any
	}{
		{
			name:       "missing critical fields",
			header:     []string{"frist", "one", "last"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "MISSING_CRITICAL_FIELD",
			wantFields: []any{"first_name", "phone"},
		},
		{
			name:       "duplicate column",
			header:     []string{"first", "one", "last", "two", "first_name"},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "AMBIGUOUS_COLUMNS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/mappings", map[string]any{"header": tt.header})
			require.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())

			body := decode[errorBody](t, resp.Body.Bytes())
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.detail("fields"))
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, body.detail("fields"))
			}
		})
	}
}

func TestMapColumns_SuggestsForUnmatched(t *testing.T) {
	ts := setupTestServer(t)
	ts.reload(t)

	resp := ts.api.Post("/api/v1/mappings", map[string]any{"header": []string{"frist", "last", "phone"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	body := decode[errorBody](t, resp.Body.Bytes())
	assert.Equal(t, []any{float64(0)}, body.detail("unmatched"))

	suggestions, ok := body.detail("suggestions").([]any)
	require.True(t, ok)
	require.Len(t, suggestions, 1)
	first := suggestions[0].(map[string]any)
	assert.Equal(t, "frist", first["header"])
	top := first["suggestions"].([]any)[0].(map[string]any)
	assert.Equal(t, "first", top["synonym"])
	assert.Equal(t, "first_name", top["code"])
}

func TestMapColumns_EmptyHeader(t *testing.T) {
	ts := setupTestServer(t)
	ts.reload(t)

	resp := ts.api.Post("/api/v1/mappings", map[string]any{"header": []string{}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "VALIDATION", decode[errorBody](t, resp.Body.Bytes()).Code)
}

func TestMapColumns_ValidationDetails(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/mappings", map[string]any{})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	body := decode[errorBody](t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", body.Code)
	details, ok := body.Details.([]any)
	require.True(t, ok, "validation details are a list")
	require.NotEmpty(t, details)
	first := details[0].(map[string]any)
	assert.NotEmpty(t, first["location"])
	assert.NotEmpty(t, first["message"])
}
