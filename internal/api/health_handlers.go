package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports whether field mapping is loaded and the import log is readable. Always answers 200; read status.",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// Health states, from best to worst.
const (
	healthy   = "healthy"
	degraded  = "degraded"
	unhealthy = "unhealthy"
)

var healthRank = map[string]int{healthy: 0, degraded: 1, unhealthy: 2}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Version    string                     `json:"version" doc:"Server version"`
	Uptime     string                     `json:"uptime" doc:"Time since the server started"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"fields":  s.checkFields(),
		"imports": s.checkImportLog(ctx),
	}

	overall := healthy
	for _, c := range components {
		if healthRank[c.Status] > healthRank[overall] {
			overall = c.Status
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Version:    s.version,
			Uptime:     time.Since(s.started).Round(time.Second).String(),
			Components: components,
		},
	}, nil
}

// checkFields reports whether a field mapping session is loaded. Without one
// every mapping and import is refused.
func (s *Server) checkFields() ComponentHealth {
	if s.fields == nil {
		return ComponentHealth{Status: degraded, Message: "field service not configured"}
	}

	status := s.fields.Status()
	if !status.Ready {
		return ComponentHealth{Status: unhealthy, Message: "field mapping setup has not completed"}
	}
	return ComponentHealth{
		Status:  healthy,
		Message: fmt.Sprintf("%d codes, %d synonyms", len(status.Codes), status.Synonyms),
	}
}

// checkImportLog verifies the import history database is readable.
func (s *Server) checkImportLog(ctx context.Context) ComponentHealth {
	if s.imports == nil {
		return ComponentHealth{Status: degraded, Message: "import service not configured"}
	}

	start := time.Now()
	_, err := s.imports.ListImports(ctx, 1)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  unhealthy,
			Latency: latency.String(),
			Message: "import log read failed",
		}
	}
	return ComponentHealth{Status: healthy, Latency: latency.String()}
}
