package boot

import (
	"sync"
	"time"

	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("boot")

type buttonState int

const (
	buttonIdle buttonState = iota
	buttonPressed
	buttonWaitRelease
	buttonTriggered
)

// DefaultHoldThreshold is how long the button must be held before the
// supervisor commits to entering provisioning mode.
const DefaultHoldThreshold = 5 * time.Second

// DefaultReleaseTimeout bounds how long WaitRelease waits for the
// physical release before rebooting anyway.
const DefaultReleaseTimeout = 10 * time.Second

// DefaultDebounceReads is the number of consecutive released polls
// required before a release is trusted; a press is acted on at its
// first reading.
const DefaultDebounceReads = 3

// ButtonMonitor implements the long-press provisioning button: four
// states (Idle, Pressed, WaitRelease and the terminal Triggered), polled
// once per Poll call with a
// raw (undebounced) "is the button held down" reading. A sustained press
// past HoldThreshold commits the force-provisioning flag to the Settings
// Store immediately, then waits for the physical release (or
// ReleaseTimeout) before rebooting, so an operator interrupted mid-hold
// still lands in provisioning mode on the next boot.
type ButtonMonitor struct {
	mu    sync.Mutex
	store *config.Store

	HoldThreshold  time.Duration
	ReleaseTimeout time.Duration
	DebounceReads  int

	state            buttonState
	pressStart       time.Time
	waitReleaseStart time.Time
	releaseStreak    int

	// OnPress fires on the Idle -> Pressed transition.
	OnPress func()
	// OnRelease fires when a debounced release is observed before the
	// hold threshold elapses (Pressed -> Idle).
	OnRelease func()
	// OnHoldTriggered fires once the hold threshold is reached, after
	// the force-AP flag has already been persisted.
	OnHoldTriggered func()
	// OnReboot fires exactly once, on release or timeout from
	// WaitRelease. The caller performs the reboot.
	OnReboot func()
}

// NewButtonMonitor returns a ButtonMonitor with the spec's default
// thresholds, starting Idle.
func NewButtonMonitor(store *config.Store) *ButtonMonitor {
	return &ButtonMonitor{
		store:          store,
		HoldThreshold:  DefaultHoldThreshold,
		ReleaseTimeout: DefaultReleaseTimeout,
		DebounceReads:  DefaultDebounceReads,
	}
}

// State reports the monitor's current FSM state as a string, for status
// reporting and tests.
func (b *ButtonMonitor) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case buttonIdle:
		return "idle"
	case buttonPressed:
		return "pressed"
	case buttonWaitRelease:
		return "wait_release"
	default:
		return "triggered"
	}
}

// Poll advances the state machine with one raw button reading. now is
// passed in explicitly so tests can drive time deterministically.
func (b *ButtonMonitor) Poll(pressed bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case buttonIdle:
		if pressed {
			b.state = buttonPressed
			b.pressStart = now
			b.releaseStreak = 0
			if b.OnPress != nil {
				b.OnPress()
			}
		}

	case buttonPressed:
		if pressed {
			b.releaseStreak = 0
			if now.Sub(b.pressStart) >= b.HoldThreshold {
				if err := b.store.SetForceAP(); err != nil {
					log.Error("failed to persist force-AP flag", "error", err)
				}
				b.state = buttonWaitRelease
				b.waitReleaseStart = now
				if b.OnHoldTriggered != nil {
					b.OnHoldTriggered()
				}
			}
			return
		}
		b.releaseStreak++
		if b.releaseStreak >= b.DebounceReads {
			b.state = buttonIdle
			if b.OnRelease != nil {
				b.OnRelease()
			}
		}

	case buttonWaitRelease:
		if !pressed {
			b.releaseStreak++
			if b.releaseStreak >= b.DebounceReads {
				b.trigger()
				return
			}
		} else {
			b.releaseStreak = 0
		}
		if now.Sub(b.waitReleaseStart) >= b.ReleaseTimeout {
			b.trigger()
		}

	case buttonTriggered:
		// Terminal: the caller is expected to be rebooting.
	}
}

func (b *ButtonMonitor) trigger() {
	b.state = buttonTriggered
	if b.OnReboot != nil {
		b.OnReboot()
	}
}
