package relays

import (
	"context"
	"log/slog"

	relayDTO "github.com/joy-dx/relay/dto"
)

// SlogRelay writes relay events to a slog.Logger using each event's ToSlog attributes.
type SlogRelay struct {
	Logger *slog.Logger
}

func NewSlogRelay(logger *slog.Logger) *SlogRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRelay{Logger: logger}
}

func (r *SlogRelay) Debug(data relayDTO.RelayEventInterface) { r.log(slog.LevelDebug, data) }
func (r *SlogRelay) Info(data relayDTO.RelayEventInterface)  { r.log(slog.LevelInfo, data) }
func (r *SlogRelay) Warn(data relayDTO.RelayEventInterface)  { r.log(slog.LevelWarn, data) }
func (r *SlogRelay) Error(data relayDTO.RelayEventInterface) { r.log(slog.LevelError, data) }
func (r *SlogRelay) Fatal(data relayDTO.RelayEventInterface) { r.log(slog.LevelError+4, data) }
func (r *SlogRelay) Meta(data relayDTO.RelayEventInterface)  { r.log(slog.LevelDebug, data) }

func (r *SlogRelay) log(level slog.Level, data relayDTO.RelayEventInterface) {
	if data == nil {
		return
	}
	attrs := append([]slog.Attr{
		slog.String("channel", string(data.RelayChannel())),
		slog.String("type", string(data.RelayType())),
	}, data.ToSlog()...)
	r.Logger.LogAttrs(context.Background(), level, data.Message(), attrs...)
}

// NoopRelay discards every event.
type NoopRelay struct{}

func (NoopRelay) Debug(relayDTO.RelayEventInterface) {}
func (NoopRelay) Info(relayDTO.RelayEventInterface)  {}
func (NoopRelay) Warn(relayDTO.RelayEventInterface)  {}
func (NoopRelay) Error(relayDTO.RelayEventInterface) {}
func (NoopRelay) Fatal(relayDTO.RelayEventInterface) {}
func (NoopRelay) Meta(relayDTO.RelayEventInterface)  {}
