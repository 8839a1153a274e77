package relays

import (
	"log/slog"

	relayDTO "github.com/joy-dx/relay/dto"
)

const RlyNefChannel relayDTO.EventChannel = "nefproxy"

const (
	RlyNefLogRef      relayDTO.EventRef = "nefproxy.log"
	RlyNefRequestRef  relayDTO.EventRef = "nefproxy.request"
	RlyNefResponseRef relayDTO.EventRef = "nefproxy.response"
	RlyNefAuthRef     relayDTO.EventRef = "nefproxy.auth"
	RlyNefPollRef     relayDTO.EventRef = "nefproxy.poll"
)

type RlyNefLog struct {
	Msg string
}

func (e RlyNefLog) RelayChannel() relayDTO.EventChannel { return RlyNefChannel }
func (e RlyNefLog) RelayType() relayDTO.EventRef        { return RlyNefLogRef }
func (e RlyNefLog) Message() string                     { return e.Msg }
func (e RlyNefLog) ToSlog() []slog.Attr {
	return []slog.Attr{slog.String("msg", e.Msg)}
}

// RlyNefRequest is published before every physical send. Bodies are never
// included so credentials cannot leak through the relay.
type RlyNefRequest struct {
	Method    string
	URL       string
	RequestID string
	HasBody   bool
	Msg       string
}

func (e RlyNefRequest) RelayChannel() relayDTO.EventChannel { return RlyNefChannel }
func (e RlyNefRequest) RelayType() relayDTO.EventRef        { return RlyNefRequestRef }
func (e RlyNefRequest) Message() string                     { return e.Msg }
func (e RlyNefRequest) ToSlog() []slog.Attr {
	return []slog.Attr{
		slog.String("method", e.Method),
		slog.String("url", e.URL),
		slog.String("request_id", e.RequestID),
		slog.Bool("has_body", e.HasBody),
	}
}

type RlyNefResponse struct {
	Method     string
	URL        string
	StatusCode int
	Result     string
	Msg        string
}

func (e RlyNefResponse) RelayChannel() relayDTO.EventChannel { return RlyNefChannel }
func (e RlyNefResponse) RelayType() relayDTO.EventRef        { return RlyNefResponseRef }
func (e RlyNefResponse) Message() string                     { return e.Msg }
func (e RlyNefResponse) ToSlog() []slog.Attr {
	return []slog.Attr{
		slog.String("method", e.Method),
		slog.String("url", e.URL),
		slog.Int("status", e.StatusCode),
		slog.String("result", e.Result),
	}
}

type RlyNefAuth struct {
	URL      string
	Username string
	Msg      string
}

func (e RlyNefAuth) RelayChannel() relayDTO.EventChannel { return RlyNefChannel }
func (e RlyNefAuth) RelayType() relayDTO.EventRef        { return RlyNefAuthRef }
func (e RlyNefAuth) Message() string                     { return e.Msg }
func (e RlyNefAuth) ToSlog() []slog.Attr {
	return []slog.Attr{
		slog.String("url", e.URL),
		slog.String("username", e.Username),
	}
}

type RlyNefPoll struct {
	Continuation string
	Hop          int
	Result       string
	Msg          string
}

func (e RlyNefPoll) RelayChannel() relayDTO.EventChannel { return RlyNefChannel }
func (e RlyNefPoll) RelayType() relayDTO.EventRef        { return RlyNefPollRef }
func (e RlyNefPoll) Message() string                     { return e.Msg }
func (e RlyNefPoll) ToSlog() []slog.Attr {
	return []slog.Attr{
		slog.String("continuation", e.Continuation),
		slog.Int("hop", e.Hop),
		slog.String("result", e.Result),
	}
}
