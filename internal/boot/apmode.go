package boot

import "github.com/desaster/nethid-bridge/internal/netinfo"

// LogAPModeStarted emits the operator-visible diagnostic the original
// firmware printed when the DHCP server came up in provisioning mode:
// the SSID clients will see and the lease range they'll be assigned
// from. Call this once the access point has actually come up.
func LogAPModeStarted(macSuffix string) {
	ap := netinfo.DefaultAPDescriptor(macSuffix)
	log.Info("ap mode started",
		"ssid", ap.SSID,
		"device_ip", ap.DeviceIP,
		"lease_start", ap.LeaseStart,
		"lease_end", ap.LeaseEnd,
	)
}
