package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// APIError is the body of every error response. Code is a domain error code,
// so clients branch on it instead of on the HTTP status.
type APIError struct { //nolint:revive // exported name reads better than Error in handler signatures
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// InvalidField locates one request validation failure.
type InvalidField struct {
	Location string `json:"location,omitempty" doc:"Where the error occurred, e.g. body.header"`
	Message  string `json:"message" doc:"What is wrong with the value"`
}

// RegisterErrorHandler makes huma render every error as an APIError. Domain
// errors keep their code; request validation failures list each invalid field.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []InvalidField
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return fromDomain(domainErr)
			}
			var detailer huma.ErrorDetailer
			switch {
			case errors.As(err, &detailer):
				d := detailer.ErrorDetail()
				details = append(details, InvalidField{Location: d.Location, Message: d.Message})
			case err != nil:
				details = append(details, InvalidField{Message: err.Error()})
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(details) > 0 {
			apiErr.Details = details
		}
		return apiErr
	}
}

// toAPIError converts err for a handler return. Domain errors keep their code,
// anything else becomes an internal error.
func toAPIError(err error) error {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return fromDomain(domainErr)
	}
	return &APIError{
		status:  http.StatusInternalServerError,
		Code:    string(domainerrors.CodeInternal),
		Message: "internal error",
	}
}

func fromDomain(err *domainerrors.Error) *APIError {
	return &APIError{
		status:  err.HTTPStatus(),
		Code:    string(err.Code),
		Message: err.Message,
		Details: err.Details,
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeAlreadyExists)
	case http.StatusBadGateway:
		return string(domainerrors.CodeRemote)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeSetupRequired)
	default:
		return string(domainerrors.CodeInternal)
	}
}
