// Package udplisten implements the legacy UDP listener: a single fixed
// port accepting small fixed-layout packets for keyboard, mouse and
// consumer control events, predating the framed control channel and
// kept for compatibility with older senders.
package udplisten

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("udplisten")

// Port is the fixed UDP port the legacy listener binds.
const Port = 4444

const protocolVersion = 1

const (
	packetTypeKeyboard = 1
	packetTypeMouse    = 2
	packetTypeConsumer = 3
)

const (
	keyboardPacketLen = 5 // header(2) + pressed(1) + modifiers(1) + key(1)
	mousePacketLen    = 7 // header(2) + buttons(1) + x(1) + y(1) + wheel_v(1) + wheel_h(1)
	consumerPacketLen = 5 // header(2) + pressed(1) + code(2)
)

// Listener accepts legacy UDP packets and drives a hidcore.Dispatcher
// from them. Any size or version mismatch is logged and the packet is
// dropped; the listener never closes on a malformed packet.
type Listener struct {
	conn       *net.UDPConn
	dispatcher *hidcore.Dispatcher
	closing    atomic.Bool
}

// Listen binds the legacy UDP listener to addr (normally ":4444") and
// returns it ready for Serve to be called.
func Listen(addr string, dispatcher *hidcore.Dispatcher) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	return &Listener{conn: conn, dispatcher: dispatcher}, nil
}

// LocalAddr returns the listener's bound address, useful in tests that
// bind to port 0.
func (l *Listener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Close stops Serve and releases the socket.
func (l *Listener) Close() error {
	l.closing.Store(true)
	return l.conn.Close()
}

// Serve reads packets until Close is called, dispatching each one. It
// blocks and should be run in its own goroutine.
func (l *Listener) Serve() {
	buf := make([]byte, 64)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if l.closing.Load() {
				return
			}
			log.Warn("udp read error", "error", err)
			continue
		}
		l.handlePacket(buf[:n])
	}
}

func (l *Listener) handlePacket(data []byte) {
	if len(data) < 2 {
		log.Warn("dropped undersized udp packet", "len", len(data))
		return
	}

	packetType, version := data[0], data[1]
	if version != protocolVersion {
		log.Warn("dropped udp packet with unsupported version", "version", version)
		return
	}

	switch packetType {
	case packetTypeKeyboard:
		if len(data) != keyboardPacketLen {
			log.Warn("dropped malformed keyboard udp packet", "len", len(data))
			return
		}
		l.handleKeyboard(data[2] != 0, data[3], data[4])

	case packetTypeMouse:
		if len(data) != mousePacketLen {
			log.Warn("dropped malformed mouse udp packet", "len", len(data))
			return
		}
		buttons := data[2]
		dx, dy := int8(data[3]), int8(data[4])
		wheelV, wheelH := int8(data[5]), int8(data[6])
		l.dispatcher.MoveMouse(buttons, int16(dx), int16(dy), int16(wheelV), int16(wheelH))

	case packetTypeConsumer:
		if len(data) != consumerPacketLen {
			log.Warn("dropped malformed consumer udp packet", "len", len(data))
			return
		}
		pressed := data[2] != 0
		code := binary.LittleEndian.Uint16(data[3:5])
		if pressed {
			l.dispatcher.PressConsumer(code)
		} else {
			l.dispatcher.ReleaseConsumer()
		}

	default:
		log.Warn("dropped udp packet with unknown type", "type", packetType)
	}
}

// handleKeyboard fans a legacy keyboard packet's modifier bitmask (the
// USB HID boot-report convention: bit 0 is left-control through bit 7
// right-gui) and its single key usage out to individual press/release
// calls on the dispatcher.
func (l *Listener) handleKeyboard(pressed bool, modifiers, key byte) {
	for bit := 0; bit < 8; bit++ {
		if modifiers&(1<<uint(bit)) == 0 {
			continue
		}
		usage := byte(0xE0 + bit)
		if pressed {
			l.dispatcher.PressKey(usage)
		} else {
			l.dispatcher.ReleaseKey(usage)
		}
	}

	if key != 0 {
		if pressed {
			l.dispatcher.PressKey(key)
		} else {
			l.dispatcher.ReleaseKey(key)
		}
	}
}
