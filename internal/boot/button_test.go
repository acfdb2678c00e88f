package boot

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/desaster/nethid-bridge/internal/config"
)

func newTestButtonMonitor(t *testing.T) *ButtonMonitor {
	t.Helper()
	flash, err := config.NewFileFlash(filepath.Join(t.TempDir(), "settings.bin"))
	if err != nil {
		t.Fatalf("NewFileFlash: %v", err)
	}
	store := config.NewStore(flash, "a1b2c3")
	b := NewButtonMonitor(store)
	b.HoldThreshold = 50 * time.Millisecond
	b.ReleaseTimeout = 50 * time.Millisecond
	b.DebounceReads = 2
	return b
}

func TestButtonIdleToPressed(t *testing.T) {
	b := newTestButtonMonitor(t)
	var pressed bool
	b.OnPress = func() { pressed = true }

	now := time.Now()
	b.Poll(true, now)
	if !pressed {
		t.Fatal("expected OnPress to fire")
	}
	if b.State() != "pressed" {
		t.Fatalf("expected state pressed, got %s", b.State())
	}
}

func TestButtonReleaseBeforeThresholdReturnsIdle(t *testing.T) {
	b := newTestButtonMonitor(t)
	var released bool
	b.OnRelease = func() { released = true }

	now := time.Now()
	b.Poll(true, now)
	b.Poll(false, now.Add(time.Millisecond))
	b.Poll(false, now.Add(2*time.Millisecond))

	if !released {
		t.Fatal("expected OnRelease to fire after debounced release")
	}
	if b.State() != "idle" {
		t.Fatalf("expected state idle, got %s", b.State())
	}
}

func TestButtonHoldTriggersForceAPAndWaitRelease(t *testing.T) {
	store := newTestStore(t)
	b := NewButtonMonitor(store)
	b.HoldThreshold = 50 * time.Millisecond
	b.ReleaseTimeout = 50 * time.Millisecond
	b.DebounceReads = 2

	var triggered bool
	b.OnHoldTriggered = func() { triggered = true }

	now := time.Now()
	b.Poll(true, now)
	b.Poll(true, now.Add(60*time.Millisecond))

	if !triggered {
		t.Fatal("expected OnHoldTriggered to fire once hold threshold elapsed")
	}
	if b.State() != "wait_release" {
		t.Fatalf("expected state wait_release, got %s", b.State())
	}
	if !store.ForceAP() {
		t.Fatal("expected force-AP flag persisted once hold threshold elapsed")
	}
}

func TestButtonWaitReleaseRebootsOnRelease(t *testing.T) {
	b := newTestButtonMonitor(t)
	var rebooted bool
	b.OnReboot = func() { rebooted = true }

	now := time.Now()
	b.Poll(true, now)
	b.Poll(true, now.Add(60*time.Millisecond)) // triggers hold
	b.Poll(false, now.Add(61*time.Millisecond))
	b.Poll(false, now.Add(62*time.Millisecond))

	if !rebooted {
		t.Fatal("expected OnReboot to fire after debounced release from wait_release")
	}
	if b.State() != "triggered" {
		t.Fatalf("expected terminal state triggered, got %s", b.State())
	}
}

func TestButtonWaitReleaseRebootsOnTimeout(t *testing.T) {
	b := newTestButtonMonitor(t)
	var rebooted bool
	b.OnReboot = func() { rebooted = true }

	now := time.Now()
	b.Poll(true, now)
	b.Poll(true, now.Add(60*time.Millisecond)) // triggers hold, enters wait_release
	// Still held, but release timeout elapses.
	b.Poll(true, now.Add(120*time.Millisecond))

	if !rebooted {
		t.Fatal("expected OnReboot to fire after release timeout")
	}
}

func TestButtonTriggeredIsTerminal(t *testing.T) {
	b := newTestButtonMonitor(t)
	rebootCount := 0
	b.OnReboot = func() { rebootCount++ }

	now := time.Now()
	b.Poll(true, now)
	b.Poll(true, now.Add(60*time.Millisecond))
	b.Poll(false, now.Add(61*time.Millisecond))
	b.Poll(false, now.Add(62*time.Millisecond))
	if rebootCount != 1 {
		t.Fatalf("expected exactly 1 reboot call, got %d", rebootCount)
	}

	// Further polls after triggered must not fire OnReboot again.
	b.Poll(true, now.Add(200*time.Millisecond))
	b.Poll(false, now.Add(300*time.Millisecond))
	if rebootCount != 1 {
		t.Fatalf("expected no additional reboot calls once triggered, got %d", rebootCount)
	}
}
