package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches 403 responses.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest matches the remaining 4xx responses.
	ErrBadRequest = errors.New("bad request")
	// ErrServer matches 5xx responses.
	ErrServer = errors.New("server error")
	// ErrTransport wraps network failures (no response received).
	ErrTransport = errors.New("transport failure")
	// ErrValidation wraps local payload validation failures.
	ErrValidation = errors.New("validation failed")
	// ErrDecode wraps a 2xx response whose body could not be parsed.
	ErrDecode = errors.New("malformed response")
)

// Display messages for responses that carry nothing better.
const (
	MsgForbidden   = "You do not have permission to perform this action"
	MsgServer      = "An unexpected error occurred. Please try again later."
	MsgUnreachable = "Unable to reach the server. Check your connection and try again."
)

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Message)
}

// Is maps the status onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrServer:
		return e.Status >= 500
	case ErrBadRequest:
		return e.Status >= 400 && e.Status < 500 &&
			e.Status != http.StatusUnauthorized &&
			e.Status != http.StatusForbidden &&
			e.Status != http.StatusNotFound
	}
	return false
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// newError builds an [*Error] from a response body. 5xx and 403 use fixed
// wording; otherwise the server's message field, then its plain text body,
// then a status-class default.
func newError(status int, method, path string, body []byte) *Error {
	e := &Error{Status: status, Method: method, Path: path}
	switch {
	case status >= 500:
		e.Message = MsgServer
		return e
	case status == http.StatusForbidden:
		e.Message = MsgForbidden
		return e
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			e.Message = parsed.Message
		} else if parsed.Error != "" {
			e.Message = parsed.Error
		}
	}
	if e.Message == "" {
		if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
			e.Message = text
		}
	}
	if e.Message == "" {
		switch status {
		case http.StatusUnauthorized:
			e.Message = "Authentication required"
		case http.StatusNotFound:
			e.Message = "The requested resource was not found"
		default:
			e.Message = http.StatusText(status)
			if e.Message == "" {
				e.Message = fmt.Sprintf("status %d", status)
			}
		}
	}
	return e
}

// Message returns a display-ready message for any error returned by this
// package.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if errors.Is(err, ErrTransport) {
		return MsgUnreachable
	}
	return err.Error()
}

// ValidationError lists the problems found in a request payload. It wraps
// [ErrValidation].
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}
