// Package device wires every subsystem package into the single
// DeviceContext value a running bridge is built from, and drives the
// periodic tasks (button poll, status LED, HID dispatch, and the pub/sub
// client in STA mode) the original
// firmware's main loop rotated through on every iteration.
package device

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/desaster/nethid-bridge/internal/api"
	"github.com/desaster/nethid-bridge/internal/auth"
	"github.com/desaster/nethid-bridge/internal/boot"
	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/httpserver"
	"github.com/desaster/nethid-bridge/internal/logging"
	"github.com/desaster/nethid-bridge/internal/pubsub"
	"github.com/desaster/nethid-bridge/internal/status"
	"github.com/desaster/nethid-bridge/internal/udplisten"
	"github.com/desaster/nethid-bridge/internal/usbhid"
	"github.com/desaster/nethid-bridge/internal/wifiscan"
	"github.com/desaster/nethid-bridge/internal/wsframe"
)

var log = logging.L("device")

// Tick rates for the Scheduler tasks. The original firmware
// rotated button, Wi-Fi link and LED polling plus HID dispatch through
// one shared loop iteration; these replace that with independent
// cadences matching how often each actually needs attention.
const (
	buttonPollInterval  = 20 * time.Millisecond
	hidDispatchInterval = 2 * time.Millisecond
	ledTickInterval     = status.TickInterval
	pubsubTaskInterval  = 100 * time.Millisecond
)

// Config is everything the caller (cmd/nethid-bridge) must supply to
// build a Context. Fields left zero get a sensible dev/desktop default.
type Config struct {
	Store     *config.Store
	MACSuffix string
	MAC       string
	Version   string

	HTTPAddr string
	UDPAddr  string

	// Transport drives the composite HID device. Nil selects an
	// in-memory usbhid.Simulated, appropriate for desktop/dev builds.
	Transport usbhid.Transport

	// ButtonReader reports the current raw (undebounced) state of the
	// physical provisioning button. Reading real GPIO is an external
	// collaborator outside this repository's scope, matching the
	// original firmware's board-support boundary; nil reports the
	// button as never pressed.
	ButtonReader func() bool

	// WifiUp reports whether the station-mode network link currently
	// has an address, the Go-side analog of the original firmware's
	// cyw43_tcpip_link_status poll. Nil reports the link as always up,
	// appropriate for a desktop build with no STA/AP distinction.
	WifiUp func() bool

	// IP returns the device's current IP address, or "" if unassigned.
	IP func() string

	// Reboot restarts (or simulates restarting) the bridge. apMode
	// is true when the caller has already persisted the force-AP flag.
	// Required.
	Reboot func(apMode bool)
}

// Context is the single owning value every running subsystem is wired
// through: the composite HID core, the Settings Store, auth, every
// ingress (HTTP, framed channel, pub/sub, legacy UDP) and the
// Scheduler driving their periodic tasks. It replaces the original
// firmware's scattered mutable globals with one struct passed by
// pointer at construction time.
type Context struct {
	Store      *config.Store
	Auth       *auth.Context
	Dispatcher *hidcore.Dispatcher
	Transport  usbhid.Transport

	HTTP      *httpserver.Server
	WSManager *wsframe.Manager
	UDP       *udplisten.Listener
	PubSub    *pubsub.Client
	Scanner   *wifiscan.Scanner
	Button    *boot.ButtonMonitor

	Scheduler *Scheduler

	mode Mode

	httpAddr string
	udpAddr  string

	buttonReader func() bool
	wifiUp       func() bool
	ip           func() string
	reboot       func(apMode bool)

	capsLockOn atomic.Bool
	ledTick    int

	// LEDTrace enables verbose per-tick LED state logging, off by
	// default since it would otherwise fire twice a second forever.
	LEDTrace bool
}

// Mode is the network mode the Context is currently operating in.
type Mode int

const (
	ModeAP Mode = iota
	ModeSTA
)

func (m Mode) String() string {
	if m == ModeAP {
		return "ap"
	}
	return "sta"
}

// New builds a Context wiring every subsystem from cfg, deciding the
// boot mode from the Settings Store's force-AP flag and stored Wi-Fi
// credentials the same way boot.Decide does for the real firmware.
func New(cfg Config) (*Context, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("device: Config.Store is required")
	}
	if cfg.Reboot == nil {
		return nil, fmt.Errorf("device: Config.Reboot is required")
	}

	decision, err := boot.Decide(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("device: deciding boot mode: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = usbhid.NewSimulated()
	}

	authCtx := auth.New(cfg.Store)
	dispatcher := hidcore.NewDispatcher(transport)
	dispatcher.Mount()

	wsManager := wsframe.NewManager()
	scanner := wifiscan.NewScanner(wifiscan.NewSimulated())
	button := boot.NewButtonMonitor(cfg.Store)

	wifiUp := cfg.WifiUp
	if wifiUp == nil {
		wifiUp = func() bool { return true }
	}
	ip := cfg.IP
	if ip == nil {
		ip = func() string { return "" }
	}
	buttonReader := cfg.ButtonReader
	if buttonReader == nil {
		buttonReader = func() bool { return false }
	}

	c := &Context{
		Store:      cfg.Store,
		Auth:       authCtx,
		Dispatcher: dispatcher,
		Transport:  transport,
		WSManager:  wsManager,
		Scanner:    scanner,
		Button:     button,

		httpAddr:     cfg.HTTPAddr,
		udpAddr:      cfg.UDPAddr,
		buttonReader: buttonReader,
		wifiUp:       wifiUp,
		ip:           ip,
		reboot:       cfg.Reboot,
	}

	if decision.Mode == boot.ModeAP {
		c.mode = ModeAP
		boot.LogAPModeStarted(cfg.MACSuffix)
	} else {
		c.mode = ModeSTA
	}

	dispatcher.CapsLockHandler = func(on bool) {
		c.capsLockOn.Store(on)
	}

	c.PubSub = pubsub.NewClient(cfg.Store, dispatcher, wifiUp)

	c.HTTP = httpserver.New()
	c.HTTP.Auth = authCtx
	c.HTTP.Dispatcher = dispatcher
	c.HTTP.WSManager = wsManager
	c.HTTP.BypassAuth = func() bool { return c.mode == ModeAP }
	c.HTTP.StatusFrame = func() []byte {
		return wsframe.StatusFrame(dispatcher.Mounted(), dispatcher.Suspended())
	}
	c.HTTP.Routes = api.Routes(&api.Deps{
		Store:      cfg.Store,
		Auth:       authCtx,
		Dispatcher: dispatcher,
		WSManager:  wsManager,
		PubSub:     c.PubSub,
		Scanner:    scanner,
		Version:    cfg.Version,
		StartedAt:  time.Now(),
		Mode:       func() string { return c.mode.String() },
		MAC:        func() string { return cfg.MAC },
		IP:         ip,
		USBMounted:   dispatcher.Mounted,
		USBSuspended: dispatcher.Suspended,
		Reboot:       c.reboot,
	})

	c.wireButton()
	c.Scheduler = c.buildScheduler()

	return c, nil
}

func (c *Context) wireButton() {
	c.Button.OnHoldTriggered = func() {
		log.Warn("provisioning button held past threshold, forcing AP mode next boot")
	}
	c.Button.OnReboot = func() {
		log.Warn("provisioning button released, rebooting into AP mode")
		c.reboot(true)
	}
}

func (c *Context) buildScheduler() *Scheduler {
	s := NewScheduler()
	s.Add("button", buttonPollInterval, func() {
		c.Button.Poll(c.buttonReader(), time.Now())
	})
	s.Add("hid-dispatch", hidDispatchInterval, func() {
		if err := c.Dispatcher.Tick(); err != nil {
			log.Warn("hid dispatch tick failed", "error", err)
		}
	})
	s.Add("led", ledTickInterval, c.tickLED)
	return s
}

func (c *Context) tickLED() {
	pattern := status.Resolve(status.CompositeStatus{
		WifiUp:       c.wifiUp(),
		USBMounted:   c.Dispatcher.Mounted(),
		USBSuspended: c.Dispatcher.Suspended(),
		CapsLockOn:   c.capsLockOn.Load(),
	})
	c.ledTick++
	c.driveLED(pattern.BitAt(c.ledTick))
}

// driveLED is a seam for a real status-LED GPIO write; driving
// physical hardware is an external collaborator out of scope here, so
// the desktop/dev build only logs the LED state at debug level on every
// tick when LEDTrace is enabled. The led task runs on a single dedicated
// goroutine, so ledTick and this method need no synchronization.
func (c *Context) driveLED(lit bool) {
	if c.LEDTrace {
		log.Debug("led", "lit", lit)
	}
}

// Mode reports the Context's current network mode.
func (c *Context) Mode() Mode { return c.mode }

// Start launches the HTTP server, framed channel support (served from
// the same listener), legacy UDP listener (STA mode only) and pub/sub
// client task loop (STA mode only), then starts the Scheduler. Start
// returns once the HTTP listener is bound; errors from subsystems
// started in the background are logged, not returned.
func (c *Context) Start() error {
	ln, err := net.Listen("tcp", c.httpAddr)
	if err != nil {
		return fmt.Errorf("device: binding http listener: %w", err)
	}

	go func() {
		if err := c.HTTP.Serve(ln); err != nil {
			log.Warn("http server stopped", "error", err)
		}
	}()

	if c.mode == ModeSTA {
		udpListener, err := udplisten.Listen(c.udpAddr, c.Dispatcher)
		if err != nil {
			log.Warn("legacy udp listener failed to start", "error", err)
		} else {
			c.UDP = udpListener
			go c.UDP.Serve()
		}
		c.Scheduler.Add("pubsub", pubsubTaskInterval, c.PubSub.Task)
	} else {
		if err := c.Scanner.Start(); err != nil {
			log.Warn("initial ap-mode scan failed to start", "error", err)
		}
	}

	c.Scheduler.Start()
	log.Info("device context started", "mode", c.mode, "http_addr", ln.Addr().String())
	return nil
}

// Close stops every running subsystem.
func (c *Context) Close() {
	c.Scheduler.Stop()
	if c.UDP != nil {
		c.UDP.Close()
	}
	if c.PubSub != nil {
		c.PubSub.Stop()
	}
	if err := c.HTTP.Close(); err != nil {
		log.Warn("http server close failed", "error", err)
	}
}
