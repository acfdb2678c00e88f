package pubsub

import (
	"encoding/json"
	"strings"

	"github.com/desaster/nethid-bridge/internal/keymap"
)

// handleMessage routes an incoming publish by the subtopic under the
// client's configured base topic. Unrecognized subtopics, and the
// client's own retained status topic, are ignored.
func (c *Client) handleMessage(topic string, payload []byte) {
	c.mu.Lock()
	base := c.baseTopic
	c.mu.Unlock()

	if !strings.HasPrefix(topic, base) {
		return
	}
	subtopic := strings.TrimPrefix(topic, base)
	subtopic = strings.TrimPrefix(subtopic, "/")

	switch subtopic {
	case "key":
		c.handleKey(payload)
	case "mouse/move":
		c.handleMouseMove(payload)
	case "mouse/button":
		c.handleMouseButton(payload)
	case "scroll":
		c.handleScroll(payload)
	case "release":
		c.dispatcher.ReleaseAll()
		c.mu.Lock()
		c.buttons = 0
		c.mu.Unlock()
	case "status":
		// Self-echo of our own retained presence message.
	default:
		log.Warn("unknown subtopic", "subtopic", subtopic)
	}
}

type keyMessage struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	Type   string `json:"type"`
}

func (c *Client) handleKey(payload []byte) {
	var msg keyMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn("invalid key message", "err", err)
		return
	}

	key, err := keymap.Lookup(msg.Key)
	if err != nil {
		log.Warn("unknown key", "key", msg.Key)
		return
	}

	if msg.Type != "" {
		switch msg.Type {
		case "consumer":
			key.Class = keymap.ClassConsumer
		case "system":
			key.Class = keymap.ClassSystem
		case "keyboard":
			key.Class = keymap.ClassKeyboard
		default:
			log.Warn("invalid key type", "type", msg.Type)
			return
		}
	}

	action, err := keymap.ParseAction(msg.Action)
	if err != nil {
		log.Warn("invalid key action", "action", msg.Action)
		return
	}

	c.executeKey(key, action)
}

func (c *Client) executeKey(key keymap.Key, action keymap.Action) {
	press := func() {
		switch key.Class {
		case keymap.ClassConsumer:
			c.dispatcher.PressConsumer(key.Usage)
		case keymap.ClassSystem:
			c.dispatcher.PressSystem(byte(key.Usage))
		default:
			c.dispatcher.PressKey(byte(key.Usage))
		}
	}
	release := func() {
		switch key.Class {
		case keymap.ClassConsumer:
			c.dispatcher.ReleaseConsumer()
		case keymap.ClassSystem:
			c.dispatcher.ReleaseSystem()
		default:
			c.dispatcher.ReleaseKey(byte(key.Usage))
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

type axisMessage struct {
	X int `json:"x"`
	Y int `json:"y"`
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

func (c *Client) handleMouseMove(payload []byte) {
	var msg axisMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn("invalid mouse/move message", "err", err)
		return
	}
	dx, dy := clampInt16(msg.X), clampInt16(msg.Y)
	c.dispatcher.MoveMouse(c.currentButtons(), dx, dy, 0, 0)
}

func (c *Client) handleScroll(payload []byte) {
	var msg axisMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn("invalid scroll message", "err", err)
		return
	}
	// Scroll uses wheel_v for y and wheel_h for x, the same
	// cross-wired mapping the framed control channel's SCROLL command
	// uses.
	wheelV, wheelH := clampInt8(msg.Y), clampInt8(msg.X)
	c.dispatcher.MoveMouse(c.currentButtons(), 0, 0, int16(wheelV), int16(wheelH))
}

type buttonMessage struct {
	Button json.RawMessage `json:"button"`
	Down   *bool           `json:"down"`
}

func buttonBit(raw json.RawMessage) (byte, bool) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if asNumber < 1 || asNumber > 31 {
			return 0, false
		}
		return byte(asNumber), true
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		switch strings.ToLower(asString) {
		case "left", "1":
			return 1, true
		case "right", "2":
			return 2, true
		case "middle", "3":
			return 4, true
		}
	}

	return 0, false
}

func (c *Client) handleMouseButton(payload []byte) {
	var msg buttonMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warn("invalid mouse/button message", "err", err)
		return
	}

	bit, ok := buttonBit(msg.Button)
	if !ok {
		log.Warn("missing or invalid button field")
		return
	}

	if msg.Down == nil {
		// No "down" field: click (press then release).
		c.setButton(bit, true)
		c.dispatcher.MoveMouse(c.currentButtons(), 0, 0, 0, 0)
		c.setButton(bit, false)
		c.dispatcher.MoveMouse(c.currentButtons(), 0, 0, 0, 0)
		return
	}

	c.setButton(bit, *msg.Down)
	c.dispatcher.MoveMouse(c.currentButtons(), 0, 0, 0, 0)
}

func (c *Client) currentButtons() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buttons
}

func (c *Client) setButton(bit byte, down bool) {
	c.mu.Lock()
	if down {
		c.buttons |= bit
	} else {
		c.buttons &^= bit
	}
	c.mu.Unlock()
}
