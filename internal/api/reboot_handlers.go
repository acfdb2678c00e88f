package api

import "github.com/desaster/nethid-bridge/internal/httpserver"

func (d *Deps) handleReboot(req *httpserver.Request) httpserver.Response {
	d.Reboot(false)
	return httpserver.JSON(200, map[string]any{"status": "rebooting"})
}

// handleRebootAP forces the next boot into AP provisioning mode, for an
// operator who wants to reconfigure Wi-Fi without a factory reset.
func (d *Deps) handleRebootAP(req *httpserver.Request) httpserver.Response {
	if err := d.Store.SetForceAP(); err != nil {
		return httpserver.ErrorJSON(500, err.Error())
	}
	d.Reboot(true)
	return httpserver.JSON(200, map[string]any{"status": "rebooting", "mode": "ap"})
}
