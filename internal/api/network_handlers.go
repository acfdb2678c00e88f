package api

import (
	"errors"

	"github.com/desaster/nethid-bridge/internal/httpserver"
	"github.com/desaster/nethid-bridge/internal/wifiscan"
)

type networkView struct {
	SSID    string `json:"ssid"`
	RSSI    int16  `json:"rssi"`
	Auth    string `json:"auth"`
	Channel uint8  `json:"ch"`
}

type networksResponse struct {
	Scanning bool          `json:"scanning"`
	Networks []networkView `json:"networks"`
}

func (d *Deps) handleNetworks(req *httpserver.Request) httpserver.Response {
	networks, scanning := d.Scanner.Results()

	views := make([]networkView, len(networks))
	for i, n := range networks {
		views[i] = networkView{SSID: n.SSID, RSSI: n.RSSI, Auth: n.Auth, Channel: n.Channel}
	}

	return httpserver.JSON(200, networksResponse{Scanning: scanning, Networks: views})
}

func (d *Deps) handleScan(req *httpserver.Request) httpserver.Response {
	if err := d.Scanner.Start(); err != nil {
		if errors.Is(err, wifiscan.ErrScanInProgress) {
			return httpserver.JSON(200, map[string]string{"status": "already scanning"})
		}
		return httpserver.ErrorJSON(500, err.Error())
	}
	return httpserver.JSON(200, map[string]string{"status": "scan started"})
}
