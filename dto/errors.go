package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joy-dx/nefproxy/utils"
)

type ErrorKind string

const (
	// ErrKindFatalAuth login failed, or the appliance answered 401 again after a fresh login
	ErrKindFatalAuth ErrorKind = "fatal_auth"
	// ErrKindDomain appliance reported a structured {"code","message"} error
	ErrKindDomain ErrorKind = "domain"
	// ErrKindBackend any other unexpected response: non-JSON or unstructured bodies, malformed 202s
	ErrKindBackend ErrorKind = "backend"
	// ErrKindConnectivity the request never produced an HTTP response
	ErrKindConnectivity ErrorKind = "connectivity"
)

var (
	ErrFatalAuth    = errors.New("fatal authentication error")
	ErrDomain       = errors.New("appliance error")
	ErrBackend      = errors.New("backend error")
	ErrConnectivity = errors.New("connectivity error")
)

// Error is the single error type surfaced by the proxy. Callers branch on Kind
// (or errors.Is against the Err* sentinels) rather than on the concrete type.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	// Body raw response body for diagnostics
	Body  []byte
	Cause error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (%d)", e.StatusCode)
	}
	if e.Code != "" {
		sb.WriteString(" " + e.Code)
	}
	if e.Message != "" {
		sb.WriteString(": " + e.Message)
	}
	if e.Kind == ErrKindBackend && e.Message == "" {
		if len(e.Body) == 0 {
			sb.WriteString(": (empty body)")
		} else {
			sb.WriteString(": " + string(e.Body))
		}
	}
	if e.Cause != nil {
		sb.WriteString(": " + e.Cause.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrFatalAuth:
		return e.Kind == ErrKindFatalAuth
	case ErrDomain:
		return e.Kind == ErrKindDomain
	case ErrBackend:
		return e.Kind == ErrKindBackend
	case ErrConnectivity:
		return e.Kind == ErrKindConnectivity
	}
	return false
}

// Temporary reports whether a connectivity failure looks transient. Every other
// kind is a definitive answer from the appliance and never temporary.
func (e *Error) Temporary() bool {
	return e.Kind == ErrKindConnectivity && utils.IsTemporaryErr(e.Cause)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func NewDomainError(status int, code, message string, body []byte) *Error {
	return &Error{Kind: ErrKindDomain, StatusCode: status, Code: code, Message: message, Body: body}
}

func NewBackendError(status int, message string, body []byte) *Error {
	return &Error{Kind: ErrKindBackend, StatusCode: status, Message: message, Body: body}
}

func NewConnectivityError(cause error) *Error {
	return &Error{Kind: ErrKindConnectivity, Cause: cause}
}

func NewFatalAuthError(message string, cause error) *Error {
	return &Error{Kind: ErrKindFatalAuth, Message: message, Cause: cause}
}
