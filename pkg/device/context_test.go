package device

import (
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/usbhid"
)

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	flash, err := config.NewFileFlash(filepath.Join(t.TempDir(), "settings.bin"))
	if err != nil {
		t.Fatalf("NewFileFlash: %v", err)
	}
	return config.NewStore(flash, "a1b2c3")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestNewWithNoCredentialsBootsAPMode(t *testing.T) {
	store := newTestStore(t)
	sim := usbhid.NewSimulated()

	ctx, err := New(Config{
		Store:     store,
		MAC:       "aa:bb:cc:dd:ee:ff",
		Version:   "test",
		HTTPAddr:  freeAddr(t),
		UDPAddr:   freeAddr(t),
		Transport: sim,
		Reboot:    func(apMode bool) {},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ctx.Mode() != ModeAP {
		t.Fatalf("expected ModeAP with no stored credentials, got %v", ctx.Mode())
	}
	if !ctx.HTTP.BypassAuth() {
		t.Fatal("expected BypassAuth to report true in AP mode")
	}
}

func TestNewWithCredentialsBootsSTAMode(t *testing.T) {
	store := newTestStore(t)
	if err := store.WifiCredentialsSet("homelab", "hunter22"); err != nil {
		t.Fatalf("WifiCredentialsSet: %v", err)
	}
	sim := usbhid.NewSimulated()

	ctx, err := New(Config{
		Store:     store,
		MAC:       "aa:bb:cc:dd:ee:ff",
		HTTPAddr:  freeAddr(t),
		UDPAddr:   freeAddr(t),
		Transport: sim,
		Reboot:    func(apMode bool) {},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ctx.Mode() != ModeSTA {
		t.Fatalf("expected ModeSTA with stored credentials, got %v", ctx.Mode())
	}
	if ctx.HTTP.BypassAuth() {
		t.Fatal("expected BypassAuth to report false in STA mode")
	}
}

func TestStartServesStatusEndpointAndClose(t *testing.T) {
	store := newTestStore(t)
	addr := freeAddr(t)
	sim := usbhid.NewSimulated()

	ctx, err := New(Config{
		Store:     store,
		MAC:       "aa:bb:cc:dd:ee:ff",
		Version:   "1.2.3",
		HTTPAddr:  addr,
		UDPAddr:   freeAddr(t),
		Transport: sim,
		Reboot:    func(apMode bool) {},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctx.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctx.Close()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/api/status")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHIDDispatchTaskDrainsQueuedKeypress(t *testing.T) {
	store := newTestStore(t)
	sim := usbhid.NewSimulated()

	ctx, err := New(Config{
		Store:     store,
		HTTPAddr:  freeAddr(t),
		UDPAddr:   freeAddr(t),
		Transport: sim,
		Reboot:    func(apMode bool) {},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := ctx.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ctx.Close()

	ctx.Dispatcher.PressKey(0x04) // usage 'a'

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if len(sim.Keyboard) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(sim.Keyboard) == 0 {
		t.Fatal("expected the hid-dispatch task to drain the queued keypress onto the transport")
	}
	if sim.Keyboard[0].Keys[0] != 0x04 {
		t.Fatalf("expected keycode 0x04 in first report, got %#v", sim.Keyboard[0].Keys)
	}
}

func TestButtonHoldTriggersForceAPAndReboot(t *testing.T) {
	store := newTestStore(t)
	if err := store.WifiCredentialsSet("homelab", "hunter22"); err != nil {
		t.Fatalf("WifiCredentialsSet: %v", err)
	}
	sim := usbhid.NewSimulated()

	rebooted := false
	ctx, err := New(Config{
		Store:     store,
		HTTPAddr:  freeAddr(t),
		UDPAddr:   freeAddr(t),
		Transport: sim,
		Reboot:    func(apMode bool) { rebooted = apMode },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	now := time.Now()
	ctx.Button.Poll(true, now)
	ctx.Button.Poll(true, now.Add(6*time.Second))
	ctx.Button.Poll(false, now.Add(6*time.Second))
	ctx.Button.Poll(false, now.Add(6*time.Second+time.Millisecond))
	ctx.Button.Poll(false, now.Add(6*time.Second+2*time.Millisecond))

	if !store.ForceAP() {
		t.Fatal("expected force-AP flag set after a held-and-released button")
	}
	if !rebooted {
		t.Fatal("expected OnReboot to have fired the Reboot(true) callback")
	}
}
