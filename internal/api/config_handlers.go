package api

import (
	"encoding/json"

	"github.com/desaster/nethid-bridge/internal/httpserver"
)

type configResponse struct {
	Configured bool   `json:"configured"`
	SSID       string `json:"ssid"`
}

func (d *Deps) handleGetConfig(req *httpserver.Request) httpserver.Response {
	creds, ok := d.Store.WifiCredentialsGet()
	return httpserver.JSON(200, configResponse{Configured: ok, SSID: creds.SSID})
}

type configRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// handlePostConfig is the provisioning flow's terminal step: save the
// chosen Wi-Fi network and reboot into station mode to join it.
func (d *Deps) handlePostConfig(req *httpserver.Request) httpserver.Response {
	var body configRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return httpserver.ErrorJSON(400, "invalid json body")
	}

	if err := d.Store.WifiCredentialsSet(body.SSID, body.Password); err != nil {
		return httpserver.ErrorJSON(400, err.Error())
	}

	d.Reboot(false)
	return httpserver.JSON(200, map[string]any{"status": "saved", "rebooting": true})
}
