package api

import (
	"encoding/json"

	"github.com/desaster/nethid-bridge/internal/httpserver"
	"github.com/desaster/nethid-bridge/internal/keymap"
)

type hidKeyRequest struct {
	Key    string `json:"key"`
	Type   string `json:"type"`
	Action string `json:"action"`
}

func (d *Deps) handleHIDKey(req *httpserver.Request) httpserver.Response {
	var body hidKeyRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return httpserver.ErrorJSON(400, "invalid json body")
	}
	if body.Key == "" {
		return httpserver.ErrorJSON(400, "missing key field")
	}

	key, err := keymap.Lookup(body.Key)
	if err != nil {
		return httpserver.ErrorJSON(400, "unknown key: "+body.Key)
	}

	if body.Type != "" {
		switch body.Type {
		case "consumer":
			key.Class = keymap.ClassConsumer
		case "system":
			key.Class = keymap.ClassSystem
		case "keyboard":
			key.Class = keymap.ClassKeyboard
		default:
			return httpserver.ErrorJSON(400, "invalid type")
		}
	}

	action, err := keymap.ParseAction(body.Action)
	if err != nil {
		return httpserver.ErrorJSON(400, "invalid action")
	}

	d.executeKey(key, action)
	return httpserver.JSON(200, map[string]bool{"success": true})
}

func (d *Deps) executeKey(key keymap.Key, action keymap.Action) {
	press := func() {
		switch key.Class {
		case keymap.ClassConsumer:
			d.Dispatcher.PressConsumer(key.Usage)
		case keymap.ClassSystem:
			d.Dispatcher.PressSystem(byte(key.Usage))
		default:
			d.Dispatcher.PressKey(byte(key.Usage))
		}
	}
	release := func() {
		switch key.Class {
		case keymap.ClassConsumer:
			d.Dispatcher.ReleaseConsumer()
		case keymap.ClassSystem:
			d.Dispatcher.ReleaseSystem()
		default:
			d.Dispatcher.ReleaseKey(byte(key.Usage))
		}
	}

	switch action {
	case keymap.ActionTap:
		press()
		release()
	case keymap.ActionPress:
		press()
	case keymap.ActionRelease:
		release()
	}
}

type hidMouseMoveRequest struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

func (d *Deps) handleHIDMouseMove(req *httpserver.Request) httpserver.Response {
	var body hidMouseMoveRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return httpserver.ErrorJSON(400, "invalid json body")
	}

	dx, dy := clampInt16(body.DX), clampInt16(body.DY)
	d.Dispatcher.MoveMouse(d.currentButtons(), dx, dy, 0, 0)
	return httpserver.JSON(200, map[string]bool{"success": true})
}

type hidMouseButtonRequest struct {
	Button int    `json:"button"`
	Action string `json:"action"`
}

func (d *Deps) handleHIDMouseButton(req *httpserver.Request) httpserver.Response {
	var body hidMouseButtonRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return httpserver.ErrorJSON(400, "invalid json body")
	}
	if body.Button < 1 || body.Button > 31 {
		return httpserver.ErrorJSON(400, "invalid or missing button")
	}
	bit := byte(body.Button)

	doPress, doRelease := true, true
	switch body.Action {
	case "", "click":
	case "press":
		doRelease = false
	case "release":
		doPress = false
	default:
		return httpserver.ErrorJSON(400, "invalid action")
	}

	if doPress {
		buttons := d.setButton(bit, true)
		d.Dispatcher.MoveMouse(buttons, 0, 0, 0, 0)
	}
	if doRelease {
		buttons := d.setButton(bit, false)
		d.Dispatcher.MoveMouse(buttons, 0, 0, 0, 0)
	}

	return httpserver.JSON(200, map[string]bool{"success": true})
}

type hidScrollRequest struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (d *Deps) handleHIDMouseScroll(req *httpserver.Request) httpserver.Response {
	var body hidScrollRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return httpserver.ErrorJSON(400, "invalid json body")
	}

	// y maps to the vertical wheel axis and x to the horizontal one, the
	// same cross-wired mapping the framed channel's SCROLL command and the
	// pub/sub scroll topic use.
	wheelV, wheelH := clampInt8(body.Y), clampInt8(body.X)
	d.Dispatcher.MoveMouse(d.currentButtons(), 0, 0, int16(wheelV), int16(wheelH))
	return httpserver.JSON(200, map[string]bool{"success": true})
}

func (d *Deps) handleHIDRelease(req *httpserver.Request) httpserver.Response {
	d.Dispatcher.ReleaseAll()
	d.clearButtons()
	return httpserver.JSON(200, map[string]bool{"success": true})
}

func clampInt16(v int) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}

func clampInt8(v int) int8 {
	if v < -127 {
		return -127
	}
	if v > 127 {
		return 127
	}
	return int8(v)
}
