package api

import (
	"github.com/google/uuid"

	"github.com/desaster/nethid-bridge/internal/httpserver"
)

// Routes builds the JSON API's route table against deps. While
// BypassAuth is active in AP mode, every route in this table is
// reachable without a session token; the httpserver.Server wiring this
// table into its Routes field is responsible for setting that up.
func Routes(deps *Deps) []httpserver.Route {
	return []httpserver.Route{
		{Method: "GET", Path: "/api/status", Handler: withRequestID(deps.handleStatus)},
		{Method: "GET", Path: "/api/config", Handler: withRequestID(deps.handleGetConfig)},
		{Method: "POST", Path: "/api/config", Handler: withRequestID(deps.handlePostConfig)},
		{Method: "GET", Path: "/api/settings", Handler: withRequestID(deps.handleGetSettings)},
		{Method: "POST", Path: "/api/settings", Handler: withRequestID(deps.handlePostSettings)},
		{Method: "GET", Path: "/api/networks", Handler: withRequestID(deps.handleNetworks)},
		{Method: "POST", Path: "/api/scan", Handler: withRequestID(deps.handleScan)},
		{Method: "POST", Path: "/api/reboot", Handler: withRequestID(deps.handleReboot)},
		{Method: "POST", Path: "/api/reboot-ap", Handler: withRequestID(deps.handleRebootAP)},
		{Method: "POST", Path: "/api/hid/key", Handler: withRequestID(deps.handleHIDKey)},
		{Method: "POST", Path: "/api/hid/mouse/move", Handler: withRequestID(deps.handleHIDMouseMove)},
		{Method: "POST", Path: "/api/hid/mouse/button", Handler: withRequestID(deps.handleHIDMouseButton)},
		{Method: "POST", Path: "/api/hid/mouse/scroll", Handler: withRequestID(deps.handleHIDMouseScroll)},
		{Method: "POST", Path: "/api/hid/release", Handler: withRequestID(deps.handleHIDRelease)},
	}
}

// withRequestID wraps a handler so every request gets a short
// correlation ID, which is logged together with the path and status
// when the handler responds with a status of 400 or above.
func withRequestID(h httpserver.HandlerFunc) httpserver.HandlerFunc {
	return func(req *httpserver.Request) httpserver.Response {
		id := uuid.NewString()[:8]
		resp := h(req)
		if resp.Status >= 400 {
			log.Warn("request failed", "request_id", id, "path", req.URI, "status", resp.Status)
		}
		return resp
	}
}
