package restyclient

import (
	"fmt"

	"github.com/joy-dx/nefproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
)

// relayLogger forwards resty's internal logging onto the relay.
type relayLogger struct {
	relay relayDTO.RelayInterface
}

func (l *relayLogger) Errorf(format string, v ...any) {
	l.relay.Error(relays.RlyNefLog{Msg: fmt.Sprintf(format, v...)})
}

func (l *relayLogger) Warnf(format string, v ...any) {
	l.relay.Warn(relays.RlyNefLog{Msg: fmt.Sprintf(format, v...)})
}

func (l *relayLogger) Debugf(format string, v ...any) {
	l.relay.Debug(relays.RlyNefLog{Msg: fmt.Sprintf(format, v...)})
}
