package wifiscan

import "time"

// Simulated is a Radio used by tests and by pkg/device, which wires it
// as the bridge's scanner radio: it returns a fixed canned result set after a small delay
// rather than driving real Wi-Fi hardware.
type Simulated struct {
	Delay   time.Duration
	Results []Network
	Err     error
}

// NewSimulated returns a Simulated radio preloaded with a couple of
// plausible nearby networks.
func NewSimulated() *Simulated {
	return &Simulated{
		Results: []Network{
			{SSID: "homelab", RSSI: -42, Auth: "wpa2", Channel: 6},
			{SSID: "homelab", RSSI: -61, Auth: "wpa2", Channel: 6},
			{SSID: "guest", RSSI: -70, Auth: "open", Channel: 11},
		},
	}
}

func (s *Simulated) Scan() ([]Network, error) {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Network, len(s.Results))
	copy(out, s.Results)
	return out, nil
}
