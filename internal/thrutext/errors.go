package thrutext

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for ThruText API operations.
var (
	ErrUnauthorized   = errors.New("thrutext: unauthorized")
	ErrNotFound       = errors.New("thrutext: not found")
	ErrBadRequest     = errors.New("thrutext: bad request")
	ErrUnprocessable  = errors.New("thrutext: unprocessable entity")
	ErrRateLimited    = errors.New("thrutext: rate limited by server")
	ErrServer         = errors.New("thrutext: server error")
	ErrNotLoggedIn    = errors.New("thrutext: no session and no credentials configured")
	ErrNoAccount      = errors.New("thrutext: login response named no account")
	ErrUnknownRegion  = errors.New("thrutext: unknown region")
	ErrExportNotReady = errors.New("thrutext: export has no csv yet")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op       string // Operation: "listGroups", "createCampaign", ...
	Resource string
	ID       string // If applicable
	Err      error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("thrutext %s [%s/%s]: %v", e.Op, e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("thrutext %s [%s]: %v", e.Op, e.Resource, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, resource, id string, err error) error {
	return &Error{
		Op:       op,
		Resource: resource,
		ID:       id,
		Err:      err,
	}
}

// ResponseError is a non-2xx answer from the API.
type ResponseError struct {
	StatusCode int
	Messages   []string
	sentinel   error
}

func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("status %d", e.StatusCode)
	if e.sentinel != nil {
		msg = e.sentinel.Error() + " (" + msg + ")"
	}
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	return msg
}

func (e *ResponseError) Unwrap() error {
	return e.sentinel
}

// errorDocument is the JSON:API error envelope.
type errorDocument struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Source struct {
			Pointer string `json:"pointer"`
		} `json:"source"`
	} `json:"errors"`
}

func statusError(status int, body []byte) error {
	e := &ResponseError{StatusCode: status}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.sentinel = ErrUnauthorized
	case status == http.StatusNotFound:
		e.sentinel = ErrNotFound
	case status == http.StatusBadRequest:
		e.sentinel = ErrBadRequest
	case status == http.StatusUnprocessableEntity:
		e.sentinel = ErrUnprocessable
	case status == http.StatusTooManyRequests:
		e.sentinel = ErrRateLimited
	case status >= 500:
		e.sentinel = ErrServer
	}

	var doc errorDocument
	if err := json.Unmarshal(body, &doc); err == nil {
		for _, item := range doc.Errors {
			msg := item.Detail
			if msg == "" {
				msg = item.Title
			}
			if item.Source.Pointer != "" {
				msg = item.Source.Pointer + ": " + msg
			}
			if msg != "" {
				e.Messages = append(e.Messages, msg)
			}
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
		e.Messages = []string{text}
	}

	return e
}
