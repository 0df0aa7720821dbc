package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Base error types
var (
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation error")
	ErrServer     = errors.New("server error")
	ErrConflict   = errors.New("conflict")
)

// GenericMessage is shown when the backend gives no usable message.
const GenericMessage = "Something went wrong. Please try again."

// Kind represents the category of error
type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindServer     Kind = "server"
	KindConflict   Kind = "conflict"
)

// Error is the typed failure surfaced to callers of the client core.
type Error struct {
	Kind       Kind
	Op         string            // Operation that failed (e.g., "create_customer")
	StatusCode int               // HTTP status code if applicable
	Message    string            // Human-readable message
	Fields     map[string]string // Per-field messages for validation errors
	Err        error             // Underlying error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg = strings.Join(parts, "; ")
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrServer:
		return e.Kind == KindServer
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

// UserMessage returns the message meant for display.
func (e *Error) UserMessage() string {
	if e.Kind == KindValidation && len(e.Fields) > 0 {
		return e.Error()
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return GenericMessage
}

// NewNetworkError wraps a transport failure or timeout.
func NewNetworkError(op string, err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Op:      op,
		Message: "Unable to reach the server. Check your connection and try again.",
		Err:     err,
	}
}

// NewServerError builds a non-2xx failure. An empty message falls back to GenericMessage.
func NewServerError(op string, status int, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = GenericMessage
	}
	return &Error{Kind: KindServer, Op: op, StatusCode: status, Message: message}
}

func NewConflictError(op string, status int, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = "A record with these details already exists."
	}
	return &Error{Kind: KindConflict, Op: op, StatusCode: status, Message: message}
}

// NewValidationError reports field-level problems found before any request was made.
func NewValidationError(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "invalid input", Fields: fields}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Message returns the display message for any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return GenericMessage
}
