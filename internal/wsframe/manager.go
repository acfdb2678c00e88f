package wsframe

import (
	"io"
	"sync"

	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("wsframe")

// Manager enforces the session-takeover rule: at most one framed
// connection is ever active. Upgrading a new connection while one is
// already active closes the incumbent first.
type Manager struct {
	mu     sync.Mutex
	active io.WriteCloser
}

// NewManager returns an empty Manager with no active connection.
func NewManager() *Manager {
	return &Manager{}
}

// Active reports whether a framed connection currently holds the
// channel.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Takeover registers conn as the active framed connection. If another
// connection already holds the channel, it is sent a close frame with
// code 4001 "Session taken over", the HID core is released so no keys
// remain held, and the incumbent is closed before conn becomes active.
// It returns a fresh Session for conn's own mouse-button shadow state.
func (m *Manager) Takeover(conn io.WriteCloser, dispatcher *hidcore.Dispatcher) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		if _, err := m.active.Write(EncodeClose(4001, "Session taken over")); err != nil {
			log.Warn("failed writing takeover close frame", "error", err)
		}
		dispatcher.ReleaseAll()
		if err := m.active.Close(); err != nil {
			log.Warn("failed closing superseded connection", "error", err)
		}
	}

	m.active = conn
	return &Session{}
}

// Release clears the active connection if it is still conn and
// releases the HID core; for any other conn it does nothing. Every
// upgraded connection calls it when its frame loop ends: client close,
// parser error, or unrecoverable TCP error. For a connection that lost
// a takeover it is therefore a no-op, since Takeover has already
// replaced and closed it.
func (m *Manager) Release(conn io.WriteCloser, dispatcher *hidcore.Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == conn {
		dispatcher.ReleaseAll()
		m.active = nil
	}
}
