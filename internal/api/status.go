package api

import "github.com/desaster/nethid-bridge/internal/httpserver"

type statusResponse struct {
	Hostname        string `json:"hostname"`
	MAC             string `json:"mac"`
	IP              string `json:"ip"`
	UptimeSeconds   int64  `json:"uptime"`
	Mode            string `json:"mode"`
	Version         string `json:"version"`
	USBMounted      bool   `json:"usb_mounted"`
	USBSuspended    bool   `json:"usb_suspended"`
	WebsocketActive bool   `json:"websocket_connected"`
}

func (d *Deps) handleStatus(req *httpserver.Request) httpserver.Response {
	hostname, _ := d.Store.Hostname()

	resp := statusResponse{
		Hostname:        hostname,
		MAC:             d.MAC(),
		IP:              d.IP(),
		UptimeSeconds:   int64(d.uptime().Seconds()),
		Mode:            d.Mode(),
		Version:         d.Version,
		USBMounted:      d.USBMounted(),
		USBSuspended:    d.USBSuspended(),
		WebsocketActive: d.WSManager.Active(),
	}
	return httpserver.JSON(200, resp)
}
