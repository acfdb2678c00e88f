package usbhid

import "testing"

func TestSimulatedStartsReady(t *testing.T) {
	s := NewSimulated()
	if !s.Ready() {
		t.Fatal("expected simulated transport to start ready")
	}
}

func TestSimulatedSetReady(t *testing.T) {
	s := NewSimulated()
	s.SetReady(false)
	if s.Ready() {
		t.Fatal("expected ready=false after SetReady(false)")
	}
}

func TestSimulatedRecordsKeyboardReports(t *testing.T) {
	s := NewSimulated()
	keys := [6]byte{0x04, 0, 0, 0, 0, 0}
	if err := s.SendKeyboard(keys); err != nil {
		t.Fatalf("SendKeyboard: %v", err)
	}
	if len(s.Keyboard) != 1 || s.Keyboard[0].Keys != keys {
		t.Fatalf("unexpected recorded keyboard reports: %+v", s.Keyboard)
	}
}

func TestSimulatedRecordsMouseReports(t *testing.T) {
	s := NewSimulated()
	if err := s.SendMouse(0x01, 10, -10, 1, 0); err != nil {
		t.Fatalf("SendMouse: %v", err)
	}
	if len(s.Mouse) != 1 {
		t.Fatalf("expected 1 mouse report, got %d", len(s.Mouse))
	}
	got := s.Mouse[0]
	if got.Buttons != 0x01 || got.DX != 10 || got.DY != -10 || got.WheelV != 1 {
		t.Fatalf("unexpected mouse report: %+v", got)
	}
}

func TestSimulatedRecordsConsumerAndSystem(t *testing.T) {
	s := NewSimulated()
	if err := s.SendConsumer(0xCD); err != nil {
		t.Fatalf("SendConsumer: %v", err)
	}
	if err := s.SendSystem(0x02); err != nil {
		t.Fatalf("SendSystem: %v", err)
	}
	if len(s.Consumer) != 1 || s.Consumer[0] != 0xCD {
		t.Fatalf("unexpected consumer reports: %v", s.Consumer)
	}
	if len(s.System) != 1 || s.System[0] != 0x02 {
		t.Fatalf("unexpected system reports: %v", s.System)
	}
}

func TestSimulatedRemoteWakeupCounts(t *testing.T) {
	s := NewSimulated()
	if err := s.RequestRemoteWakeup(); err != nil {
		t.Fatalf("RequestRemoteWakeup: %v", err)
	}
	if err := s.RequestRemoteWakeup(); err != nil {
		t.Fatalf("RequestRemoteWakeup: %v", err)
	}
	if s.RemoteWakeupCalls != 2 {
		t.Fatalf("expected 2 remote wakeup calls, got %d", s.RemoteWakeupCalls)
	}
}
