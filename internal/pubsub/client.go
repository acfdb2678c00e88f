package pubsub

import (
	"fmt"
	"net"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/hidcore"
	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("pubsub")

const (
	keepAlive         = 60 * time.Second
	commandQoS        = byte(1)
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 60 * time.Second
	reconnectMult     = 2
	statusSuffix      = "/status"
	willMessage       = "offline"
	onlineMessage     = "online"
	handshakeTimeout  = 5 * time.Second
)

// Client owns the single logical pub/sub connection: a subscription
// to <base>/# that mirrors the framed control channel's command
// schema over JSON instead of binary frames, plus a retained
// online/offline presence topic.
type Client struct {
	store      *config.Store
	dispatcher *hidcore.Dispatcher
	wifiUp     func() bool

	mu           sync.Mutex
	state        State
	reason       Reason
	reconnectMs  time.Duration
	backoffUntil time.Time
	generation   uint64
	mqttClient   mqtt.Client
	baseTopic    string
	buttons      byte
}

// NewClient builds a pub/sub client bound to store for broker
// configuration and dispatcher for HID command execution. wifiUp
// reports whether the network link is currently up; the client stays
// Idle while it is down, matching mqtt_task's wifi_up guard.
func NewClient(store *config.Store, dispatcher *hidcore.Dispatcher, wifiUp func() bool) *Client {
	return &Client{
		store:       store,
		dispatcher:  dispatcher,
		wifiUp:      wifiUp,
		state:       StateDisabled,
		reconnectMs: reconnectMinDelay,
	}
}

// State reports the client's current lifecycle stage.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason reports why the client is in StateError, or ReasonNone
// otherwise.
func (c *Client) Reason() Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// IsReady reports whether the client holds a live, subscribed broker
// connection.
func (c *Client) IsReady() bool {
	c.mu.Lock()
	client := c.mqttClient
	ready := c.state == StateReady
	c.mu.Unlock()
	return ready && client != nil && client.IsConnected()
}

// Task advances the state machine by one step. It is meant to be
// polled periodically; the DNS lookup and the CONNECT/SUBSCRIBE
// handshakes run in a background goroutine and report back through
// setState, mirroring how the original firmware's connection attempt
// is driven by asynchronous lwIP callbacks rather than the poll loop
// itself.
func (c *Client) Task() {
	settings := c.store.MQTT()

	if !settings.Enabled {
		c.mu.Lock()
		alreadyDisabled := c.state == StateDisabled
		c.mu.Unlock()
		if !alreadyDisabled {
			log.Info("disabled in settings")
			c.teardown()
			c.setState(StateDisabled, ReasonNone)
		}
		return
	}

	if c.wifiUp != nil && !c.wifiUp() {
		c.mu.Lock()
		state := c.state
		c.mu.Unlock()
		if state != StateIdle && state != StateDisabled {
			log.Info("wifi down, disconnecting")
			c.teardown()
		}
		c.setState(StateIdle, ReasonNone)
		return
	}

	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateDisabled:
		c.setState(StateIdle, ReasonNone)
		c.startConnection(settings)
	case StateIdle:
		c.startConnection(settings)
	case StateDNSResolving, StateConnecting, StateSubscribing, StateReady:
		// Handled by the background goroutine and paho's callbacks.
	case StateError:
		c.enterBackoff()
	case StateBackoff:
		c.mu.Lock()
		due := !time.Now().Before(c.backoffUntil)
		c.mu.Unlock()
		if due {
			log.Info("backoff complete, retrying")
			c.setState(StateIdle, ReasonNone)
		}
	}
}

// Stop forces a clean disconnect, e.g. when entering AP provisioning
// mode where no uplink exists to hold a broker connection open.
func (c *Client) Stop() {
	log.Info("stopping")
	c.teardown()
	c.mu.Lock()
	c.reconnectMs = reconnectMinDelay
	c.mu.Unlock()
	c.setState(StateDisabled, ReasonNone)
}

// Reconnect tears down any live connection and restarts from Idle,
// e.g. after a settings change to the broker address.
func (c *Client) Reconnect() {
	log.Info("reconnect requested")
	c.teardown()
	c.mu.Lock()
	c.reconnectMs = reconnectMinDelay
	c.mu.Unlock()
	c.setState(StateIdle, ReasonNone)
}

func (c *Client) startConnection(settings config.MQTTSettings) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return
	}
	if settings.Broker == "" || settings.Topic == "" {
		c.mu.Unlock()
		log.Warn("no broker or topic configured")
		c.setState(StateError, ReasonConnectFailure)
		return
	}
	c.generation++
	gen := c.generation
	c.baseTopic = settings.Topic
	c.state = StateDNSResolving
	c.mu.Unlock()

	log.Info("resolving broker", "broker", settings.Broker)
	go c.resolveAndConnect(gen, settings)
}

func (c *Client) resolveAndConnect(gen uint64, settings config.MQTTSettings) {
	addrs, err := net.LookupHost(settings.Broker)
	if err != nil || len(addrs) == 0 {
		log.Warn("dns resolution failed", "broker", settings.Broker, "err", err)
		c.failIfCurrent(gen, ReasonDNSFailure)
		return
	}

	if !c.transitionIfCurrent(gen, StateConnecting) {
		return
	}

	broker := fmt.Sprintf("tcp://%s:%d", addrs[0], settings.Port)
	log.Info("connecting", "broker", broker, "client_id", settings.ClientID)

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(settings.ClientID).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(handshakeTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true)

	if settings.Username != "" {
		opts.SetUsername(settings.Username)
	}
	if settings.Password != "" {
		opts.SetPassword(settings.Password)
	}

	willTopic := settings.Topic + statusSuffix
	opts.SetWill(willTopic, willMessage, commandQoS, true)

	opts.SetConnectionLostHandler(func(mqtt.Client, error) {
		log.Warn("connection lost")
		c.dispatcher.ReleaseAll()
		c.failIfCurrent(gen, ReasonTransportLoss)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(handshakeTimeout) || token.Error() != nil {
		log.Warn("connect failed", "err", token.Error())
		c.failIfCurrent(gen, ReasonConnectFailure)
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		client.Disconnect(250)
		return
	}
	c.mqttClient = client
	c.mu.Unlock()

	c.subscribe(gen, client, settings)
}

func (c *Client) subscribe(gen uint64, client mqtt.Client, settings config.MQTTSettings) {
	if !c.transitionIfCurrent(gen, StateSubscribing) {
		client.Disconnect(250)
		return
	}

	log.Info("subscribing", "topic", settings.Topic+"/#")
	subscribeTopic := settings.Topic + "/#"
	token := client.Subscribe(subscribeTopic, commandQoS, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(handshakeTimeout) || token.Error() != nil {
		log.Warn("subscribe failed", "err", token.Error())
		client.Disconnect(250)
		c.failIfCurrent(gen, ReasonSubscribeFailure)
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		client.Disconnect(250)
		return
	}
	c.reconnectMs = reconnectMinDelay
	c.state = StateReady
	c.reason = ReasonNone
	c.mu.Unlock()
	log.Info("ready", "topic", settings.Topic)

	statusTopic := settings.Topic + statusSuffix
	client.Publish(statusTopic, commandQoS, true, onlineMessage).WaitTimeout(handshakeTimeout)
}

func (c *Client) transitionIfCurrent(gen uint64, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.state = state
	return true
}

func (c *Client) failIfCurrent(gen uint64, reason Reason) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = StateError
	c.reason = reason
	c.mqttClient = nil
	c.mu.Unlock()
}

func (c *Client) enterBackoff() {
	c.mu.Lock()
	c.backoffUntil = time.Now().Add(c.reconnectMs)
	c.state = StateBackoff
	delay := c.reconnectMs
	c.reconnectMs *= reconnectMult
	if c.reconnectMs > reconnectMaxDelay {
		c.reconnectMs = reconnectMaxDelay
	}
	c.mu.Unlock()
	log.Info("entering backoff", "delay", delay)
}

func (c *Client) setState(state State, reason Reason) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.reason = reason
	c.mu.Unlock()
	if prev != state {
		log.Info("state transition", "from", prev.String(), "to", state.String(), "reason", reason.String())
	}
}

// teardown invalidates any in-flight connection attempt and
// disconnects the live client, if any, releasing all held HID state
// first so a torn-down broker connection never leaves keys or mouse
// buttons stuck down.
func (c *Client) teardown() {
	c.mu.Lock()
	c.generation++
	client := c.mqttClient
	c.mqttClient = nil
	c.buttons = 0
	c.mu.Unlock()

	c.dispatcher.ReleaseAll()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}
