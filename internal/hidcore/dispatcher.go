// Package hidcore implements the composite HID dispatcher: it accepts key,
// mouse, consumer and system control events from any number of producers
// (the web UI, the control channel, MQTT, the legacy UDP listener) and
// drains them onto a usbhid.Transport at a fixed cadence, in the same
// keyboard > consumer > system > mouse priority order the original
// firmware's interrupt-driven report queue used.
package hidcore

import (
	"sync"

	"github.com/desaster/nethid-bridge/internal/usbhid"
)

const (
	keyboardQueueCapacity = 32
	consumerQueueCapacity = 32
	systemQueueCapacity   = 32
	mouseQueueCapacity    = 8

	maxRollover = 6

	// systemUsageBase is the lowest raw HID system-control usage the
	// dispatcher accepts (Power Down, in the Generic Desktop page). The
	// report descriptor only needs three dense values, so PressSystem
	// rebases raw usages down to {1, 2, 3} rather than carrying the full
	// usage byte over the wire.
	systemUsageBase = 0x81
)

// Dispatcher owns the composite report state and drains it onto a
// usbhid.Transport once per Tick. All exported methods are safe for
// concurrent use; Tick is intended to be called from a single scheduler
// goroutine.
type Dispatcher struct {
	mu sync.Mutex

	transport usbhid.Transport

	keycodes [maxRollover]byte

	keyboardQueue *boundedQueue[[maxRollover]byte]
	consumerQueue *boundedQueue[uint16]
	systemQueue   *boundedQueue[byte]
	mouseButtons  *boundedQueue[byte]

	mouseAcc mouseAccumulator

	mounted             bool
	suspended           bool
	remoteWakeupEnabled bool

	// CapsLockHandler, if set, is invoked whenever the host sends a
	// keyboard LED output report with a changed caps-lock bit.
	CapsLockHandler func(on bool)
	lastCapsLock    bool
}

// NewDispatcher returns a Dispatcher driving transport. The dispatcher
// starts unmounted; callers must call Mount once the transport signals
// USB enumeration has completed.
func NewDispatcher(transport usbhid.Transport) *Dispatcher {
	return &Dispatcher{
		transport:     transport,
		keyboardQueue: newBoundedQueue[[maxRollover]byte](keyboardQueueCapacity),
		consumerQueue: newBoundedQueue[uint16](consumerQueueCapacity),
		systemQueue:   newBoundedQueue[byte](systemQueueCapacity),
		mouseButtons:  newBoundedQueue[byte](mouseQueueCapacity),
	}
}

// Mount marks the composite device enumerated and ready to receive
// reports, clearing any stale queued state from a previous session.
func (d *Dispatcher) Mount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mounted = true
	d.suspended = false
	d.resetLocked()
}

// Unmount marks the device no longer attached to a host.
func (d *Dispatcher) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mounted = false
}

// Suspend marks the bus suspended, recording whether the host granted
// remote wakeup so Tick knows whether it may request one.
func (d *Dispatcher) Suspend(remoteWakeupEnabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = true
	d.remoteWakeupEnabled = remoteWakeupEnabled
}

// Resume clears suspend state after the host has resumed the bus.
func (d *Dispatcher) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suspended = false
}

// Mounted reports whether the composite device is currently enumerated.
func (d *Dispatcher) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

// Suspended reports whether the USB bus is currently suspended.
func (d *Dispatcher) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

func (d *Dispatcher) resetLocked() {
	d.keycodes = [maxRollover]byte{}
	d.keyboardQueue = newBoundedQueue[[maxRollover]byte](keyboardQueueCapacity)
	d.consumerQueue = newBoundedQueue[uint16](consumerQueueCapacity)
	d.systemQueue = newBoundedQueue[byte](systemQueueCapacity)
	d.mouseButtons = newBoundedQueue[byte](mouseQueueCapacity)
	d.mouseAcc.reset()
}

// PressKey adds usage to the pressed-key set (a no-op if already pressed
// or if all 6 rollover slots are full) and enqueues a full snapshot of
// the resulting keyboard state, matching the original firmware's
// press_key behavior.
func (d *Dispatcher) PressKey(usage byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, k := range d.keycodes {
		if k == usage {
			return
		}
	}
	for i, k := range d.keycodes {
		if k == 0 {
			d.keycodes[i] = usage
			d.keyboardQueue.tryAdd(d.keycodes)
			return
		}
	}
}

// ReleaseKey removes usage from the pressed-key set and enqueues the
// resulting snapshot, shifting later slots down so gaps never appear in
// the middle of the rollover array.
func (d *Dispatcher) ReleaseKey(usage byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := -1
	for i, k := range d.keycodes {
		if k == usage {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	for i := idx; i < maxRollover-1; i++ {
		d.keycodes[i] = d.keycodes[i+1]
	}
	d.keycodes[maxRollover-1] = 0
	d.keyboardQueue.tryAdd(d.keycodes)
}

// MoveMouse accumulates a motion/wheel delta and, if the button mask
// changed since the last call, enqueues the new mask as a discrete
// transition so no click is ever coalesced away.
func (d *Dispatcher) MoveMouse(buttons byte, dx, dy, wheelV, wheelH int16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if buttons != d.mouseAcc.buttons {
		d.mouseButtons.tryAdd(buttons)
	}
	d.mouseAcc.setButtons(buttons)
	d.mouseAcc.addMotion(dx, dy, wheelV, wheelH)
}

// PressConsumer enqueues a consumer control usage code.
func (d *Dispatcher) PressConsumer(code uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumerQueue.tryAdd(code)
}

// ReleaseConsumer enqueues the consumer control idle report (usage 0).
func (d *Dispatcher) ReleaseConsumer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumerQueue.tryAdd(0)
}

// PressSystem enqueues a system control usage, rebased from its raw HID
// usage byte down to the small dense value {1, 2, 3} the report
// descriptor expects for {power, sleep, wake}. Usages below
// systemUsageBase are dropped as out of range.
func (d *Dispatcher) PressSystem(usage byte) {
	if usage < systemUsageBase {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.systemQueue.tryAdd(usage - systemUsageBase + 1)
}

// ReleaseSystem enqueues the system control idle report (usage 0).
func (d *Dispatcher) ReleaseSystem() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.systemQueue.tryAdd(0)
}

// ReleaseAll clears every pressed key, button and consumer/system usage
// and queues the idle reports needed to tell the host so, used when a
// control session is taken over or disconnects uncleanly.
func (d *Dispatcher) ReleaseAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keycodes = [maxRollover]byte{}
	d.keyboardQueue.tryAdd(d.keycodes)
	d.consumerQueue.tryAdd(0)
	d.systemQueue.tryAdd(0)
	if d.mouseAcc.buttons != 0 {
		d.mouseButtons.tryAdd(0)
	}
	d.mouseAcc.setButtons(0)
}

// pending reports whether there is anything at all queued or
// accumulated, used to decide whether a suspended bus should be woken.
func (d *Dispatcher) pendingLocked() bool {
	return !d.keyboardQueue.isEmpty() || !d.consumerQueue.isEmpty() ||
		!d.systemQueue.isEmpty() || !d.mouseButtons.isEmpty() || d.mouseAcc.hasPending()
}

// Tick drains at most one composite report onto the transport, in
// keyboard > consumer > system > mouse priority order. It is a no-op
// while unmounted, and while suspended it either requests remote wakeup
// (if the host granted it and something is pending) or does nothing.
func (d *Dispatcher) Tick() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.mounted {
		return nil
	}

	if d.suspended {
		if d.remoteWakeupEnabled && d.pendingLocked() {
			return d.transport.RequestRemoteWakeup()
		}
		return nil
	}

	if !d.transport.Ready() {
		return nil
	}

	if keys, ok := d.keyboardQueue.tryRemove(); ok {
		return d.transport.SendKeyboard(keys)
	}
	if code, ok := d.consumerQueue.tryRemove(); ok {
		return d.transport.SendConsumer(code)
	}
	if usage, ok := d.systemQueue.tryRemove(); ok {
		return d.transport.SendSystem(usage)
	}
	if buttons, ok := d.mouseButtons.tryRemove(); ok {
		// A queued button transition always reports with zero motion;
		// any accumulated motion is left for the next tick so the
		// click itself is never coalesced with movement.
		return d.transport.SendMouse(buttons, 0, 0, 0, 0)
	}
	if d.mouseAcc.hasPending() {
		buttons, dx, dy, wv, wh := d.mouseAcc.take()
		return d.transport.SendMouse(buttons, dx, dy, wv, wh)
	}

	return nil
}

// HandleKeyboardOutputReport is wired to usbhid.GadgetFS.OnOutputReport
// (or called directly in tests/simulation) to mirror the host's caps-lock
// LED state, sent as report 1 byte-0 bit-1 in the USB HID LED page.
func (d *Dispatcher) HandleKeyboardOutputReport(reportID byte, data []byte) {
	if len(data) == 0 {
		return
	}
	capsLock := data[0]&0x02 != 0

	d.mu.Lock()
	changed := capsLock != d.lastCapsLock
	d.lastCapsLock = capsLock
	handler := d.CapsLockHandler
	d.mu.Unlock()

	if changed && handler != nil {
		handler(capsLock)
	}
}
