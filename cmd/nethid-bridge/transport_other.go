//go:build !linux

package main

import (
	"fmt"

	"github.com/desaster/nethid-bridge/internal/usbhid"
)

// openRealTransport has no non-Linux implementation: the gadgetfs
// character devices this depends on are Linux-specific. A non-Linux
// build must run with simulate_hid enabled.
func openRealTransport(dir string) (usbhid.Transport, error) {
	return nil, fmt.Errorf("real HID transport is only available on linux")
}
