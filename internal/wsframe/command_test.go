package wsframe

import (
	"testing"

	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/usbhid"
)

func newTestDispatcher() (*hidcore.Dispatcher, *usbhid.Simulated) {
	sim := usbhid.NewSimulated()
	d := hidcore.NewDispatcher(sim)
	d.Mount()
	return d, sim
}

func TestApplyCommandKey(t *testing.T) {
	d, sim := newTestDispatcher()
	s := &Session{}

	if !s.ApplyCommand(d, []byte{CmdKey, 0x04, 1}) {
		t.Fatal("expected ApplyCommand to succeed")
	}
	d.Tick()
	if len(sim.Keyboard) != 1 || sim.Keyboard[0].Keys[0] != 0x04 {
		t.Fatalf("unexpected keyboard reports: %+v", sim.Keyboard)
	}
}

func TestApplyCommandMouseMoveUsesShadowButtons(t *testing.T) {
	d, sim := newTestDispatcher()
	s := &Session{}

	s.ApplyCommand(d, []byte{CmdMouseButton, 0x01, 1})
	d.Tick()
	s.ApplyCommand(d, []byte{CmdMouseMove, 10, 0, 0xF6, 0xFF}) // dx=10, dy=-10
	d.Tick()

	if len(sim.Mouse) != 2 {
		t.Fatalf("expected 2 mouse reports, got %d", len(sim.Mouse))
	}
	move := sim.Mouse[1]
	if move.Buttons != 0x01 || move.DX != 10 || move.DY != -10 {
		t.Fatalf("unexpected move report: %+v", move)
	}
}

func TestApplyCommandScrollCrossWiresAxes(t *testing.T) {
	d, sim := newTestDispatcher()
	s := &Session{}

	s.ApplyCommand(d, []byte{CmdScroll, 3, 0xFE}) // dx=3, dy=-2
	d.Tick()

	if len(sim.Mouse) != 1 {
		t.Fatalf("expected 1 mouse report, got %d", len(sim.Mouse))
	}
	r := sim.Mouse[0]
	if r.WheelV != -2 || r.WheelH != 3 {
		t.Fatalf("unexpected scroll report: %+v", r)
	}
}

func TestApplyCommandConsumer(t *testing.T) {
	d, sim := newTestDispatcher()
	s := &Session{}

	s.ApplyCommand(d, []byte{CmdConsumer, 0xE9, 0x00, 1})
	d.Tick()
	if len(sim.Consumer) != 1 || sim.Consumer[0] != 0xE9 {
		t.Fatalf("unexpected consumer reports: %v", sim.Consumer)
	}
}

func TestApplyCommandSystem(t *testing.T) {
	d, sim := newTestDispatcher()
	s := &Session{}

	s.ApplyCommand(d, []byte{CmdSystem, 0x81, 0x00, 1})
	d.Tick()
	if len(sim.System) != 1 || sim.System[0] != 1 {
		t.Fatalf("unexpected system reports: %v", sim.System)
	}
}

func TestApplyCommandReleaseAllClearsShadowButtons(t *testing.T) {
	d, sim := newTestDispatcher()
	s := &Session{}

	s.ApplyCommand(d, []byte{CmdMouseButton, 0x01, 1})
	s.ApplyCommand(d, []byte{CmdReleaseAll})
	s.ApplyCommand(d, []byte{CmdMouseMove, 1, 0, 0, 0})
	d.Tick()
	d.Tick()
	d.Tick()

	for _, r := range sim.Mouse {
		if r.Buttons != 0 {
			t.Fatalf("expected buttons cleared after release-all, got %+v", r)
		}
	}
}

func TestApplyCommandRejectsShortPayloads(t *testing.T) {
	d, _ := newTestDispatcher()
	s := &Session{}
	if s.ApplyCommand(d, []byte{CmdKey, 0x04}) {
		t.Fatal("expected short KEY payload to be rejected")
	}
	if s.ApplyCommand(d, []byte{}) {
		t.Fatal("expected empty payload to be rejected")
	}
}

func TestApplyCommandRejectsUnknownType(t *testing.T) {
	d, _ := newTestDispatcher()
	s := &Session{}
	if s.ApplyCommand(d, []byte{0x99}) {
		t.Fatal("expected unknown command type to be rejected")
	}
}

func TestStatusFrame(t *testing.T) {
	f := StatusFrame(true, false)
	parsed, _, err := ParseFrame(append([]byte{}, f...))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Payload[0] != CmdStatus || parsed.Payload[1] != 0x01 {
		t.Fatalf("unexpected status payload: %v", parsed.Payload)
	}
}
