package boot

import (
	"path/filepath"
	"testing"

	"github.com/desaster/nethid-bridge/internal/config"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	flash, err := config.NewFileFlash(filepath.Join(t.TempDir(), "settings.bin"))
	if err != nil {
		t.Fatalf("NewFileFlash: %v", err)
	}
	return config.NewStore(flash, "a1b2c3")
}

func TestDecideAPWhenNoCredentials(t *testing.T) {
	store := newTestStore(t)
	d, err := Decide(store)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Mode != ModeAP {
		t.Fatalf("expected ModeAP, got %v", d.Mode)
	}
}

func TestDecideSTAWhenCredentialsExist(t *testing.T) {
	store := newTestStore(t)
	if err := store.WifiCredentialsSet("home", "sekrit"); err != nil {
		t.Fatalf("WifiCredentialsSet: %v", err)
	}
	d, err := Decide(store)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Mode != ModeSTA {
		t.Fatalf("expected ModeSTA, got %v", d.Mode)
	}
	if d.Creds.SSID != "home" {
		t.Fatalf("unexpected creds: %+v", d.Creds)
	}
}

func TestDecideForceAPOverridesCredentialsAndClearsFlag(t *testing.T) {
	store := newTestStore(t)
	store.WifiCredentialsSet("home", "sekrit")
	if err := store.SetForceAP(); err != nil {
		t.Fatalf("SetForceAP: %v", err)
	}

	d, err := Decide(store)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Mode != ModeAP {
		t.Fatalf("expected ModeAP due to force flag, got %v", d.Mode)
	}
	if store.ForceAP() {
		t.Fatal("expected force-AP flag cleared after being consumed")
	}

	// Next boot, with the flag consumed, should fall back to STA.
	d2, err := Decide(store)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d2.Mode != ModeSTA {
		t.Fatalf("expected ModeSTA on subsequent boot, got %v", d2.Mode)
	}
}

func TestModeString(t *testing.T) {
	if ModeAP.String() != "ap" {
		t.Fatal("expected ap")
	}
	if ModeSTA.String() != "sta" {
		t.Fatal("expected sta")
	}
}
