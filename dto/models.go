package dto

import (
	"encoding/json"
	"net/http"
	"time"
)

type TransportType string

const (
	TransportHTTP  TransportType = "nef.transport.http"
	TransportResty TransportType = "nef.transport.resty"
)

// RawResponse is produced once per physical send and never mutated.
type RawResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultEmpty
	ResultAccepted
	ResultAuthExpired
	ResultError
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultEmpty:
		return "empty"
	case ResultAccepted:
		return "accepted"
	case ResultAuthExpired:
		return "auth_expired"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the classification of a RawResponse.
type Result struct {
	Kind ResultKind
	// Payload is the raw "data" field of a success envelope, nil when absent or null
	Payload json.RawMessage
	// Continuation is the link to poll when Kind is ResultAccepted
	Continuation string
	// Err is set when Kind is ResultError
	Err *Error
}

type OperationStatus string

const (
	PENDING  OperationStatus = "pending"
	COMPLETE OperationStatus = "complete"
	FAILED   OperationStatus = "failed"
)

// OperationState tracks the last asynchronous (202) operation started by a method+path.
type OperationState struct {
	Method       string          `json:"method" yaml:"method"`
	Path         string          `json:"path" yaml:"path"`
	Continuation string          `json:"continuation" yaml:"continuation"`
	Status       OperationStatus `json:"status" yaml:"status"`
	Hops         int             `json:"hops" yaml:"hops"`
	Message      string          `json:"message,omitempty" yaml:"message,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at" yaml:"updated_at"`
}

type ProxyState struct {
	BaseURL       string                    `json:"base_url" yaml:"base_url"`
	Pool          string                    `json:"pool,omitempty" yaml:"pool,omitempty"`
	Transport     TransportType             `json:"transport" yaml:"transport"`
	Authenticated bool                      `json:"authenticated" yaml:"authenticated"`
	Operations    map[string]OperationState `json:"operations,omitempty" yaml:"operations,omitempty"`
}
