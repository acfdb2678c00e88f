package wifiscan

import (
	"errors"
	"testing"
	"time"
)

func TestFinalizeDedupesKeepingStrongestSignal(t *testing.T) {
	got := finalize([]Network{
		{SSID: "homelab", RSSI: -80},
		{SSID: "homelab", RSSI: -42},
		{SSID: "guest", RSSI: -70},
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 networks, got %+v", got)
	}
	if got[0].SSID != "homelab" || got[0].RSSI != -42 {
		t.Fatalf("expected strongest homelab entry first, got %+v", got[0])
	}
}

func TestFinalizeDropsHiddenNetworks(t *testing.T) {
	got := finalize([]Network{{SSID: "", RSSI: -40}, {SSID: "visible", RSSI: -50}})
	if len(got) != 1 || got[0].SSID != "visible" {
		t.Fatalf("expected hidden network dropped, got %+v", got)
	}
}

func TestFinalizeSortsStrongestFirst(t *testing.T) {
	got := finalize([]Network{
		{SSID: "weak", RSSI: -90},
		{SSID: "strong", RSSI: -30},
		{SSID: "medium", RSSI: -60},
	})
	if len(got) != 3 || got[0].SSID != "strong" || got[1].SSID != "medium" || got[2].SSID != "weak" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestFinalizeCapsAtMaxNetworks(t *testing.T) {
	raw := make([]Network, MaxNetworks+4)
	for i := range raw {
		raw[i] = Network{SSID: string(rune('a' + i)), RSSI: int16(-i)}
	}
	if got := finalize(raw); len(got) != MaxNetworks {
		t.Fatalf("expected %d networks, got %d", MaxNetworks, len(got))
	}
}

func TestScannerStartIsIdempotentWhileRunning(t *testing.T) {
	s := NewScanner(&Simulated{Delay: 50 * time.Millisecond})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
}

func TestScannerResultsAfterScanCompletes(t *testing.T) {
	s := NewScanner(NewSimulated())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !s.Active() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	networks, scanning := s.Results()
	if scanning {
		t.Fatal("expected scan to have completed")
	}
	if len(networks) == 0 {
		t.Fatal("expected cached networks after scan completes")
	}
}

func TestScannerSurfacesRadioError(t *testing.T) {
	s := NewScanner(&Simulated{Err: errors.New("scan boom")})
	s.Start()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && s.Active() {
		time.Sleep(5 * time.Millisecond)
	}

	networks, _ := s.Results()
	if len(networks) != 0 {
		t.Fatalf("expected no cached networks after failed scan, got %+v", networks)
	}
}
