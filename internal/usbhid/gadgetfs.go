//go:build linux

package usbhid

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("usbhid")

// gadgetReportSize is the fixed write size for each /dev/hidgN file,
// matching the composite report descriptor's byte layout per class.
var gadgetReportSize = map[string]int{
	"keyboard": 8, // modifier byte, reserved byte, 6 keycodes
	"mouse":    5, // buttons, dx, dy, wheel-v, wheel-h
	"consumer": 2, // 16-bit usage code
	"system":   1, // 8-bit report value
}

// GadgetFS writes composite HID reports directly to Linux USB HID gadget
// character devices (/dev/hidg0..3), configured out-of-band via configfs.
// A character device write blocks until the host has consumed the
// previous report, which is this package's translation of the original
// firmware's tud_hid_report_complete_cb interrupt: the blocking Write
// call itself is the "wait for completion" signal, no separate callback
// plumbing needed.
type GadgetFS struct {
	mu               sync.Mutex
	fds              map[string]int
	remoteWakeupPath string
	ready            atomic.Bool
	OnOutputReport   func(reportID byte, data []byte)
}

// GadgetFSConfig names the character devices backing each report class.
type GadgetFSConfig struct {
	KeyboardPath     string // e.g. /dev/hidg0
	MousePath        string // e.g. /dev/hidg1
	ConsumerPath     string // e.g. /dev/hidg2
	SystemPath       string // e.g. /dev/hidg3
	RemoteWakeupPath string // e.g. /sys/class/udc/.../device/gadget/wakeup, optional
}

// OpenGadgetFS opens every configured gadget character device in
// blocking read/write mode.
func OpenGadgetFS(cfg GadgetFSConfig) (*GadgetFS, error) {
	g := &GadgetFS{fds: make(map[string]int), remoteWakeupPath: cfg.RemoteWakeupPath}
	g.ready.Store(true)

	paths := map[string]string{
		"keyboard": cfg.KeyboardPath,
		"mouse":    cfg.MousePath,
		"consumer": cfg.ConsumerPath,
		"system":   cfg.SystemPath,
	}
	for class, path := range paths {
		if path == "" {
			continue
		}
		fd, err := unix.Open(path, unix.O_RDWR, 0)
		if err != nil {
			g.Close()
			return nil, fmt.Errorf("open gadget device %s (%s): %w", path, class, err)
		}
		g.fds[class] = fd
	}

	return g, nil
}

// Close releases every open gadget file descriptor.
func (g *GadgetFS) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var firstErr error
	for class, fd := range g.fds {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close gadget device (%s): %w", class, err)
		}
	}
	g.fds = map[string]int{}
	return firstErr
}

func (g *GadgetFS) Ready() bool {
	return g.ready.Load()
}

func (g *GadgetFS) write(class string, data []byte) error {
	g.mu.Lock()
	fd, ok := g.fds[class]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("gadget device for %s not configured", class)
	}

	n, err := unix.Write(fd, data)
	if err != nil {
		return fmt.Errorf("write %s report: %w", class, err)
	}
	if n != len(data) {
		return fmt.Errorf("short write to %s gadget device: %d of %d bytes", class, n, len(data))
	}
	return nil
}

func (g *GadgetFS) SendKeyboard(keys [6]byte) error {
	report := make([]byte, gadgetReportSize["keyboard"])
	report[0] = 0 // modifier byte; modifiers travel as key usages 0xE0-0xE7 in the key slots
	report[1] = 0
	copy(report[2:], keys[:])
	return g.write("keyboard", report)
}

func (g *GadgetFS) SendMouse(buttons byte, dx, dy, wheelV, wheelH int8) error {
	report := []byte{buttons, byte(dx), byte(dy), byte(wheelV), byte(wheelH)}
	return g.write("mouse", report)
}

func (g *GadgetFS) SendConsumer(code uint16) error {
	report := []byte{byte(code), byte(code >> 8)}
	return g.write("consumer", report)
}

func (g *GadgetFS) SendSystem(usage byte) error {
	return g.write("system", []byte{usage})
}

// StartOutputReader reads LED output reports from the keyboard gadget
// device in a background goroutine, invoking OnOutputReport for each one.
// The real hardware delivers these via tud_hid_set_report_cb; gadgetfs
// surfaces the same OUT endpoint traffic as ordinary reads from the
// character device.
func (g *GadgetFS) StartOutputReader() error {
	g.mu.Lock()
	fd, ok := g.fds["keyboard"]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("keyboard gadget device not configured")
	}

	go func() {
		buf := make([]byte, 1)
		for {
			n, err := unix.Read(fd, buf)
			if err != nil {
				log.Warn("gadget output report reader stopped", "error", err)
				return
			}
			if n > 0 && g.OnOutputReport != nil {
				g.OnOutputReport(reportIDKeyboard, buf[:n])
			}
		}
	}()
	return nil
}

const reportIDKeyboard = 1

func (g *GadgetFS) RequestRemoteWakeup() error {
	if g.remoteWakeupPath == "" {
		return fmt.Errorf("remote wakeup not configured")
	}
	fd, err := unix.Open(g.remoteWakeupPath, unix.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open remote wakeup control: %w", err)
	}
	defer unix.Close(fd)
	if _, err := unix.Write(fd, []byte("1")); err != nil {
		return fmt.Errorf("write remote wakeup control: %w", err)
	}
	log.Info("triggered remote wakeup via gadget udc control")
	return nil
}
