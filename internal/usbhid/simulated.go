package usbhid

import "sync"

// KeyboardReport is one recorded keyboard HID report.
type KeyboardReport struct {
	Keys [6]byte
}

// MouseReport is one recorded mouse HID report.
type MouseReport struct {
	Buttons byte
	DX, DY  int8
	WheelV  int8
	WheelH  int8
}

// Simulated is an in-memory Transport used by tests and by pkg/device
// when no Transport is configured. It never blocks and always reports
// Ready.
type Simulated struct {
	mu                sync.Mutex
	ready             bool
	Keyboard          []KeyboardReport
	Mouse             []MouseReport
	Consumer          []uint16
	System            []byte
	RemoteWakeupCalls int
}

// NewSimulated returns a Simulated transport that starts Ready.
func NewSimulated() *Simulated {
	return &Simulated{ready: true}
}

// SetReady lets tests model a host that has not yet drained the previous
// report.
func (s *Simulated) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Simulated) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Simulated) SendKeyboard(keys [6]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Keyboard = append(s.Keyboard, KeyboardReport{Keys: keys})
	return nil
}

func (s *Simulated) SendMouse(buttons byte, dx, dy, wheelV, wheelH int8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mouse = append(s.Mouse, MouseReport{Buttons: buttons, DX: dx, DY: dy, WheelV: wheelV, WheelH: wheelH})
	return nil
}

func (s *Simulated) SendConsumer(code uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Consumer = append(s.Consumer, code)
	return nil
}

func (s *Simulated) SendSystem(usage byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.System = append(s.System, usage)
	return nil
}

func (s *Simulated) RequestRemoteWakeup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RemoteWakeupCalls++
	return nil
}
