package api

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/GetThruTools/ThruText-API/internal/domain"
	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
	"github.com/GetThruTools/ThruText-API/internal/service"
	"github.com/GetThruTools/ThruText-API/internal/thrutext"
)

func (s *Server) registerImportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createImport",
		Method:        http.MethodPost,
		Path:          "/api/v1/imports",
		Summary:       "Import contacts as a group",
		Description:   "Maps the CSV header, creates a ThruText group from the rows and records the attempt. Content that already imported successfully, or is still being imported, is refused unless force is set.",
		Tags:          []string{"Imports"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateImport)

	huma.Register(s.api, huma.Operation{
		OperationID: "listImports",
		Method:      http.MethodGet,
		Path:        "/api/v1/imports",
		Summary:     "List imports",
		Description: "Returns recorded import attempts, newest first",
		Tags:        []string{"Imports"},
	}, s.handleListImports)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImport",
		Method:      http.MethodGet,
		Path:        "/api/v1/imports/{id}",
		Summary:     "Get import",
		Description: "Returns one recorded import attempt",
		Tags:        []string{"Imports"},
	}, s.handleGetImport)
}

// ImportResponse is a recorded import attempt in API responses.
type ImportResponse struct {
	ID            string                  `json:"id" doc:"Import ID"`
	GroupName     string                  `json:"group_name" doc:"Requested group name"`
	FileName      string                  `json:"file_name,omitempty" doc:"Uploaded file name"`
	ContentHash   string                  `json:"content_hash" doc:"SHA-256 of the decoded file content"`
	Status        domain.ImportStatus     `json:"status" doc:"pending, succeeded, or failed"`
	RemoteGroupID string                  `json:"remote_group_id,omitempty" doc:"ThruText group ID once created"`
	Rows          int                     `json:"rows" doc:"Contact rows sent, excluding the header"`
	Critical      map[string]int          `json:"critical,omitempty" doc:"Critical field columns"`
	CustomFields  []fieldmap.CustomColumn `json:"custom_fields,omitempty" doc:"Custom field columns"`
	Error         string                  `json:"error,omitempty" doc:"Failure reason"`
	CreatedAt     time.Time               `json:"created_at" doc:"When the import started"`
	UpdatedAt     time.Time               `json:"updated_at" doc:"Last status change"`
}

func toImportResponse(g *domain.GroupImport) ImportResponse {
	resp := ImportResponse{
		ID:            g.ID,
		GroupName:     g.GroupName,
		FileName:      g.FileName,
		ContentHash:   g.ContentHash,
		Status:        g.Status,
		RemoteGroupID: g.RemoteGroupID,
		Rows:          g.Rows,
		Error:         g.Error,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
	// Stored mappings were encoded by this service; a bad one is left out.
	if len(g.Critical) > 0 {
		_ = json.Unmarshal(g.Critical, &resp.Critical)
	}
	if len(g.CustomFields) > 0 {
		_ = json.Unmarshal(g.CustomFields, &resp.CustomFields)
	}
	return resp
}

// CreateImportRequest is the request body for importing a CSV file.
type CreateImportRequest struct {
	GroupName string `json:"group_name" minLength:"1" maxLength:"255" doc:"Name of the group to create"`
	FileName  string `json:"file_name,omitempty" maxLength:"255" doc:"Original file name, kept for the record"`
	CountryID string `json:"country_id,omitempty" doc:"Country for phone numbers (default US)"`
	CSV       string `json:"csv" minLength:"1" doc:"CSV file content, header row first"`
	Force     bool   `json:"force,omitempty" doc:"Import even if the same content already imported or is being imported"`
}

// CreateImportInput wraps the import request for Huma.
type CreateImportInput struct {
	Body CreateImportRequest
}

// CreateImportResponse is a finished import with the created group.
type CreateImportResponse struct {
	Import  ImportResponse         `json:"import" doc:"Recorded import attempt"`
	Group   *thrutext.Group        `json:"group,omitempty" doc:"Created ThruText group"`
	Mapping *service.MappingResult `json:"mapping,omitempty" doc:"Column mapping used"`
}

// CreateImportOutput wraps the import response for Huma.
type CreateImportOutput struct {
	Body CreateImportResponse
}

func (s *Server) handleCreateImport(ctx context.Context, input *CreateImportInput) (*CreateImportOutput, error) {
	result, err := s.imports.ImportReader(ctx, strings.NewReader(input.Body.CSV), service.ImportRequest{
		GroupName: input.Body.GroupName,
		FileName:  input.Body.FileName,
		CountryID: input.Body.CountryID,
		Force:     input.Body.Force,
	})
	if err != nil {
		return nil, toAPIError(err)
	}

	return &CreateImportOutput{
		Body: CreateImportResponse{
			Import:  toImportResponse(result.Import),
			Group:   result.Group,
			Mapping: result.Mapping,
		},
	}, nil
}

// ListImportsInput contains parameters for listing imports.
type ListImportsInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum number of imports to return"`
}

// ListImportsResponse contains recorded imports.
type ListImportsResponse struct {
	Imports []ImportResponse `json:"imports" doc:"Import attempts, newest first"`
}

// ListImportsOutput wraps the list response for Huma.
type ListImportsOutput struct {
	Body ListImportsResponse
}

func (s *Server) handleListImports(ctx context.Context, input *ListImportsInput) (*ListImportsOutput, error) {
	imports, err := s.imports.ListImports(ctx, input.Limit)
	if err != nil {
		return nil, toAPIError(err)
	}

	resp := make([]ImportResponse, 0, len(imports))
	for _, g := range imports {
		resp = append(resp, toImportResponse(g))
	}
	return &ListImportsOutput{Body: ListImportsResponse{Imports: resp}}, nil
}

// GetImportInput contains parameters for getting an import.
type GetImportInput struct {
	ID string `path:"id" doc:"Import ID"`
}

// ImportOutput wraps a single import for Huma.
type ImportOutput struct {
	Body ImportResponse
}

func (s *Server) handleGetImport(ctx context.Context, input *GetImportInput) (*ImportOutput, error) {
	g, err := s.imports.GetImport(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ImportOutput{Body: toImportResponse(g)}, nil
}
