package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/service"
	"github.com/GetThruTools/ThruText-API/internal/suggest"
)

func (s *Server) registerFieldRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getFieldStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/fields",
		Summary:     "Get field mapping status",
		Description: "Returns whether a reconciled synonym table and code registry are loaded, with the registered codes",
		Tags:        []string{"Fields"},
	}, s.handleGetFieldStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "reloadFields",
		Method:      http.MethodPost,
		Path:        "/api/v1/fields/reload",
		Summary:     "Reload field mapping",
		Description: "Re-reads the synonym file and the code registry. The previous session keeps serving if the reload fails.",
		Tags:        []string{"Fields"},
	}, s.handleReloadFields)

	huma.Register(s.api, huma.Operation{
		OperationID: "mapColumns",
		Method:      http.MethodPost,
		Path:        "/api/v1/mappings",
		Summary:     "Map a CSV header row",
		Description: "Resolves a header row to critical and custom field columns. Unmatched headers come back with suggestions.",
		Tags:        []string{"Fields"},
	}, s.handleMapColumns)
}

// FieldStatusOutput wraps the field status for Huma.
type FieldStatusOutput struct {
	Body service.FieldStatus
}

func (s *Server) handleGetFieldStatus(_ context.Context, _ *struct{}) (*FieldStatusOutput, error) {
	return &FieldStatusOutput{Body: s.fields.Status()}, nil
}

// ReloadFieldsRequest is the request body for reloading the field mapping.
type ReloadFieldsRequest struct {
	Force bool `json:"force,omitempty" doc:"Ignore the cached code registry and ask ThruText for the current custom fields"`
}

// ReloadFieldsInput wraps the reload request for Huma.
type ReloadFieldsInput struct {
	Body ReloadFieldsRequest
}

// ReloadFieldsOutput wraps the reload result for Huma.
type ReloadFieldsOutput struct {
	Body *service.ReloadResult
}

func (s *Server) handleReloadFields(ctx context.Context, input *ReloadFieldsInput) (*ReloadFieldsOutput, error) {
	result, err := s.fields.Reload(ctx, input.Body.Force)
	if err != nil {
		// The diagnostics are the useful part of a failed reload.
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) && result != nil {
			return nil, fromDomain(domainErr.WithDetails(result))
		}
		return nil, toAPIError(err)
	}
	return &ReloadFieldsOutput{Body: result}, nil
}

// MapColumnsRequest is the request body for mapping a header row.
type MapColumnsRequest struct {
	Header []string `json:"header" minItems:"1" doc:"CSV header row, left to right"`
}

// MapColumnsInput wraps the mapping request for Huma.
type MapColumnsInput struct {
	Body MapColumnsRequest
}

// MapColumnsOutput wraps the mapping result for Huma.
type MapColumnsOutput struct {
	Body *service.MappingResult
}

// MappingErrorDetails accompanies a rejected mapping.
type MappingErrorDetails struct {
	Fields      []string                    `json:"fields,omitempty" doc:"Offending field codes or columns"`
	Unmatched   []int                       `json:"unmatched" doc:"Columns no synonym matched"`
	Suggestions []suggest.ColumnSuggestions `json:"suggestions" doc:"Closest synonyms for unmatched columns"`
}

func (s *Server) handleMapColumns(ctx context.Context, input *MapColumnsInput) (*MapColumnsOutput, error) {
	result, err := s.fields.Map(ctx, input.Body.Header)
	if err != nil {
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) && result != nil {
			return nil, fromDomain(domainErr.WithDetails(MappingErrorDetails{
				Fields:      domainerrors.DetailList(err),
				Unmatched:   result.Unmatched,
				Suggestions: result.Suggestions,
			}))
		}
		return nil, toAPIError(err)
	}
	return &MapColumnsOutput{Body: result}, nil
}
