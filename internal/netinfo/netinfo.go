// Package netinfo describes the device's two Wi-Fi personalities: the
// self-hosted provisioning access point and the MAC-derived naming
// scheme shared by AP SSID and default hostname generation. The radio
// driver and DHCP server themselves are an external collaborator out of
// this repository's scope; this package only carries the descriptors
// other components need to name and log that collaborator's behavior.
package netinfo

import "strings"

const (
	// APSSIDPrefix is prepended to the MAC-derived suffix to form the
	// provisioning access point's SSID.
	APSSIDPrefix = "NetHID-"

	// DefaultAPPassword is the fixed passphrase for the provisioning
	// access point.
	DefaultAPPassword = "nethid123"

	// APDeviceIP is the device's own address while hosting the
	// provisioning access point.
	APDeviceIP = "192.168.4.1"

	// APLeaseRangeStart and APLeaseRangeEnd bound the DHCP lease pool
	// the access point's DHCP server hands out to clients.
	APLeaseRangeStart = "192.168.4.16"
	APLeaseRangeEnd   = "192.168.4.254"
)

// APDescriptor is the access point's full set of operator-visible
// identifying details.
type APDescriptor struct {
	SSID       string
	Password   string
	DeviceIP   string
	LeaseStart string
	LeaseEnd   string
}

// DefaultAPDescriptor builds the access point descriptor for a given MAC
// suffix (the last three octets, hex-encoded, case-insensitive).
func DefaultAPDescriptor(macSuffix string) APDescriptor {
	return APDescriptor{
		SSID:       APSSID(macSuffix),
		Password:   DefaultAPPassword,
		DeviceIP:   APDeviceIP,
		LeaseStart: APLeaseRangeStart,
		LeaseEnd:   APLeaseRangeEnd,
	}
}

// APSSID derives the access point SSID from a MAC suffix, e.g.
// "NetHID-ABCDEF" for suffix "abcdef".
func APSSID(macSuffix string) string {
	return APSSIDPrefix + strings.ToUpper(macSuffix)
}
