package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

func TestMetrics_HTTP(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodPost, "/api/v1/mappings", 200, 15*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/api/v1/mappings", 422, 5*time.Millisecond)
	m.ObserveHTTP(http.MethodPost, "/api/v1/mappings", 200, 25*time.Millisecond)

	families, err := m.Gather()
	require.NoError(t, err)

	requests := findMetricFamily(families, "http_requests_total")
	require.NotNil(t, requests)
	ok := findMetricByLabels(requests, map[string]string{"route": "/api/v1/mappings", "status": "200"})
	require.NotNil(t, ok)
	assert.Equal(t, 2.0, ok.GetCounter().GetValue())

	duration := findMetricFamily(families, "http_request_duration_seconds")
	require.NotNil(t, duration)
	assert.Equal(t, dto.MetricType_HISTOGRAM, duration.GetType())
	assert.Equal(t, uint64(3), duration.Metric[0].GetHistogram().GetSampleCount())
}

func TestMetrics_Setup(t *testing.T) {
	m := New()

	m.SetupFinished(nil, 12, 5)
	m.SetupFinished(errors.New("boom"), 99, 99)

	families, err := m.Gather()
	require.NoError(t, err)

	runs := findMetricFamily(families, "setup_runs_total")
	require.NotNil(t, runs)
	assert.Equal(t, 1.0, findMetricByLabels(runs, map[string]string{"outcome": OutcomeOK}).GetCounter().GetValue())
	assert.Equal(t, 1.0, findMetricByLabels(runs, map[string]string{"outcome": OutcomeError}).GetCounter().GetValue())

	assert.Equal(t, 12.0, findMetricFamily(families, "fields_synonyms").Metric[0].GetGauge().GetValue())
	assert.Equal(t, 5.0, findMetricFamily(families, "fields_codes").Metric[0].GetGauge().GetValue())
	assert.Positive(t, findMetricFamily(families, "last_reload_timestamp_seconds").Metric[0].GetGauge().GetValue())
}

func TestMetrics_Mappings(t *testing.T) {
	m := New()

	m.MappingFinished(nil)
	m.MappingFinished(domainerrors.MissingCriticalField([]string{"phone"}))
	m.MappingFinished(domainerrors.MissingCriticalField([]string{"last_name"}))
	m.ImportFinished("succeeded")

	families, err := m.Gather()
	require.NoError(t, err)

	mappings := findMetricFamily(families, "mappings_total")
	require.NotNil(t, mappings)
	assert.Equal(t, 1.0, findMetricByLabels(mappings, map[string]string{"result": "ok"}).GetCounter().GetValue())
	assert.Equal(t, 2.0, findMetricByLabels(mappings, map[string]string{"result": "MISSING_CRITICAL_FIELD"}).GetCounter().GetValue())

	imports := findMetricFamily(families, "imports_total")
	require.NotNil(t, imports)
	assert.Equal(t, 1.0, imports.Metric[0].GetCounter().GetValue())
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP(http.MethodGet, "/health", 200, time.Millisecond)
		m.SetupFinished(nil, 1, 1)
		m.MappingFinished(nil)
		m.ImportFinished("failed")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ImportFinished("duplicate")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `thrutext_groups_imports_total{status="duplicate"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func findMetricFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), name) {
			return f
		}
	}
	return nil
}

func findMetricByLabels(family *dto.MetricFamily, labels map[string]string) *dto.Metric {
	for _, m := range family.Metric {
		match := true
		for wantKey, wantValue := range labels {
			found := false
			for _, l := range m.Label {
				if l.GetName() == wantKey && l.GetValue() == wantValue {
					found = true
					break
				}
			}
			if !found {
				match = false
				break
			}
		}
		if match {
			return m
		}
	}
	return nil
}
