// Package api implements the device's JSON API: status, Wi-Fi
// provisioning, settings CRUD, scan control, HID injection, and reboot
// endpoints, each wired up as an httpserver.Route.
package api

import (
	"sync"
	"time"

	"github.com/desaster/nethid-bridge/internal/auth"
	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/httpserver"
	"github.com/desaster/nethid-bridge/internal/logging"
	"github.com/desaster/nethid-bridge/internal/pubsub"
	"github.com/desaster/nethid-bridge/internal/wifiscan"
	"github.com/desaster/nethid-bridge/internal/wsframe"
)

var log = logging.L("api")

// Deps is every subsystem the JSON API handlers read from or act on.
// It is built once at boot and shared by every handler closure Routes
// returns.
type Deps struct {
	Store      *config.Store
	Auth       *auth.Context
	Dispatcher *hidcore.Dispatcher
	WSManager  *wsframe.Manager
	PubSub     *pubsub.Client
	Scanner    *wifiscan.Scanner

	Version   string
	StartedAt time.Time

	// Mode reports the device's current network mode ("ap" or "sta").
	Mode func() string
	// MAC returns the device's MAC address, colon-separated.
	MAC func() string
	// IP returns the device's current IP address, or "" if unassigned.
	IP func() string
	// USBMounted and USBSuspended report the live USB bus state.
	USBMounted   func() bool
	USBSuspended func() bool

	// Reboot requests a restart of the bridge. When apMode is true the
	// caller has already persisted the force-AP flag.
	Reboot func(apMode bool)

	// buttonMu guards buttons, the mouse button shadow the HID API
	// endpoints maintain across stateless HTTP requests, the same way
	// the framed channel and pub/sub ingress paths each keep their own.
	buttonMu sync.Mutex
	buttons  byte
}

func (d *Deps) uptime() time.Duration {
	return time.Since(d.StartedAt)
}

func (d *Deps) currentButtons() byte {
	d.buttonMu.Lock()
	defer d.buttonMu.Unlock()
	return d.buttons
}

func (d *Deps) setButton(bit byte, down bool) byte {
	d.buttonMu.Lock()
	defer d.buttonMu.Unlock()
	if down {
		d.buttons |= bit
	} else {
		d.buttons &^= bit
	}
	return d.buttons
}

func (d *Deps) clearButtons() {
	d.buttonMu.Lock()
	d.buttons = 0
	d.buttonMu.Unlock()
}
