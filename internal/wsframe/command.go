package wsframe

import (
	"encoding/binary"
	"sync"

	"github.com/desaster/nethid-bridge/internal/hidcore"
)

// HID command types carried in the payload of a binary frame.
const (
	CmdKey         = 0x01
	CmdMouseMove   = 0x02
	CmdMouseButton = 0x03
	CmdScroll      = 0x04
	CmdConsumer    = 0x06
	CmdSystem      = 0x07
	CmdReleaseAll  = 0x0F
	CmdStatus      = 0x10 // server -> client only
)

// Session holds the per-connection state a framed channel needs beyond
// what hidcore.Dispatcher already tracks: MOUSE_MOVE and SCROLL frames
// carry only a motion delta, so the last button mask this connection
// sent has to be remembered and replayed with every motion report.
type Session struct {
	mu      sync.Mutex
	buttons byte
}

// ApplyCommand decodes one binary-frame payload per the HID command
// schema and applies it to dispatcher. It reports false for a payload
// too short for its command type or an unrecognized command type; the
// caller drops both without closing the connection.
func (s *Session) ApplyCommand(dispatcher *hidcore.Dispatcher, payload []byte) bool {
	if len(payload) < 1 {
		return false
	}

	switch payload[0] {
	case CmdKey:
		if len(payload) < 3 {
			return false
		}
		usage, down := payload[1], payload[2] != 0
		if down {
			dispatcher.PressKey(usage)
		} else {
			dispatcher.ReleaseKey(usage)
		}

	case CmdMouseMove:
		if len(payload) < 5 {
			return false
		}
		dx := int16(binary.LittleEndian.Uint16(payload[1:3]))
		dy := int16(binary.LittleEndian.Uint16(payload[3:5]))
		dispatcher.MoveMouse(s.currentButtons(), dx, dy, 0, 0)

	case CmdMouseButton:
		if len(payload) < 3 {
			return false
		}
		bit, down := payload[1], payload[2] != 0
		buttons := s.setButton(bit, down)
		dispatcher.MoveMouse(buttons, 0, 0, 0, 0)

	case CmdScroll:
		if len(payload) < 3 {
			return false
		}
		dx, dy := int8(payload[1]), int8(payload[2])
		dispatcher.MoveMouse(s.currentButtons(), 0, 0, int16(dy), int16(dx))

	case CmdConsumer:
		if len(payload) < 4 {
			return false
		}
		code := binary.LittleEndian.Uint16(payload[1:3])
		if payload[3] != 0 {
			dispatcher.PressConsumer(code)
		} else {
			dispatcher.ReleaseConsumer()
		}

	case CmdSystem:
		if len(payload) < 4 {
			return false
		}
		code := binary.LittleEndian.Uint16(payload[1:3])
		down := payload[3] != 0
		if code > 0xFF {
			return false
		}
		if down {
			dispatcher.PressSystem(byte(code))
		} else {
			dispatcher.ReleaseSystem()
		}

	case CmdReleaseAll:
		dispatcher.ReleaseAll()
		s.mu.Lock()
		s.buttons = 0
		s.mu.Unlock()

	default:
		return false
	}

	return true
}

func (s *Session) currentButtons() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buttons
}

func (s *Session) setButton(bit byte, down bool) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if down {
		s.buttons |= bit
	} else {
		s.buttons &^= bit
	}
	return s.buttons
}

// StatusFrame builds the server-pushed USB status frame: one byte of
// flags (bit 0 mounted, bit 1 suspended) behind the CmdStatus type.
func StatusFrame(mounted, suspended bool) []byte {
	var flags byte
	if mounted {
		flags |= 0x01
	}
	if suspended {
		flags |= 0x02
	}
	return EncodeFrame(OpBinary, []byte{CmdStatus, flags})
}
