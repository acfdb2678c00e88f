//go:build linux

package main

import "github.com/desaster/nethid-bridge/internal/usbhid"

// openRealTransport opens the Linux gadgetfs character devices under
// dir. It is only reachable when the dev overlay has disabled
// simulation, which only makes sense on the real board.
func openRealTransport(dir string) (usbhid.Transport, error) {
	return usbhid.OpenGadgetFS(usbhid.GadgetFSConfig{
		KeyboardPath:     dir + "/hidg0",
		MousePath:        dir + "/hidg1",
		ConsumerPath:     dir + "/hidg2",
		SystemPath:       dir + "/hidg3",
		RemoteWakeupPath: dir + "/../power/wakeup",
	})
}
