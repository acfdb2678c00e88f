package status

import "testing"

func TestResolvePriorityOrder(t *testing.T) {
	tests := []struct {
		name string
		in   CompositeStatus
		want Pattern
	}{
		{"capslock overrides everything", CompositeStatus{CapsLockOn: true, USBSuspended: true}, PatternCapsLock},
		{"suspended overrides wifi/mount", CompositeStatus{USBSuspended: true, WifiUp: true, USBMounted: true}, PatternSuspended},
		{"mounted and wifi up", CompositeStatus{WifiUp: true, USBMounted: true}, PatternMountedWifiUp},
		{"wifi up, not mounted", CompositeStatus{WifiUp: true, USBMounted: false}, PatternNotMountedWifiUp},
		{"mounted, wifi down", CompositeStatus{WifiUp: false, USBMounted: true}, PatternMountedWifiDown},
		{"neither", CompositeStatus{}, PatternNotMountedWifiDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%+v) = %016b, want %016b", tt.in, got, tt.want)
			}
		})
	}
}

func TestPatternBitAtWraps(t *testing.T) {
	p := PatternNotMountedWifiUp // 1010000000000000
	if !p.BitAt(0) {
		t.Fatal("expected bit 0 lit")
	}
	if p.BitAt(1) {
		t.Fatal("expected bit 1 dark")
	}
	if !p.BitAt(2) {
		t.Fatal("expected bit 2 lit")
	}
	// Wraps every 16 ticks.
	if p.BitAt(0) != p.BitAt(16) {
		t.Fatal("expected pattern to repeat every 16 ticks")
	}
}

func TestPatternCapsLockAllBitsLit(t *testing.T) {
	for i := 0; i < 16; i++ {
		if !PatternCapsLock.BitAt(i) {
			t.Fatalf("expected bit %d lit for solid caps-lock pattern", i)
		}
	}
}
