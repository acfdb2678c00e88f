// Package usbhid defines the boundary between the HID Core dispatcher and
// the actual USB endpoint, and ships two implementations of it: a Linux
// gadgetfs writer for real hardware and an in-memory recorder for tests
// and the desktop build.
package usbhid

// Transport is driven by the HID Core dispatcher to emit composite HID
// reports. Implementations must be safe to call from a single dispatcher
// goroutine; no concurrent calls are made against one Transport.
type Transport interface {
	// Ready reports whether the host has finished consuming the previous
	// report and a new one may be sent.
	Ready() bool

	SendKeyboard(keys [6]byte) error
	SendMouse(buttons byte, dx, dy, wheelV, wheelH int8) error
	SendConsumer(code uint16) error
	SendSystem(usage byte) error

	// RequestRemoteWakeup asks the host to resume the USB bus from
	// suspend. Only meaningful while suspended with remote wakeup
	// enabled by the host.
	RequestRemoteWakeup() error
}
