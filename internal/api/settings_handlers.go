package api

import (
	"encoding/json"

	"github.com/desaster/nethid-bridge/internal/httpserver"
)

type mqttSettingsView struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	Port        uint16 `json:"port"`
	Topic       string `json:"topic"`
	Username    string `json:"username"`
	HasPassword bool   `json:"has_password"`
	ClientID    string `json:"client_id"`
}

type syslogSettingsView struct {
	Server string `json:"server"`
	Port   uint16 `json:"port"`
}

type settingsSnapshot struct {
	Hostname        string             `json:"hostname"`
	HostnameDefault bool               `json:"hostname_is_default"`
	WifiConfigured  bool               `json:"wifi_configured"`
	WifiSSID        string             `json:"wifi_ssid"`
	MQTT            mqttSettingsView   `json:"mqtt"`
	Syslog          syslogSettingsView `json:"syslog"`
	HasPassword     bool               `json:"has_password"`
}

func (d *Deps) handleGetSettings(req *httpserver.Request) httpserver.Response {
	return httpserver.JSON(200, d.snapshot())
}

func (d *Deps) snapshot() settingsSnapshot {
	hostname, isDefault := d.Store.Hostname()
	creds, wifiOK := d.Store.WifiCredentialsGet()
	mqtt := d.Store.MQTT()
	syslog := d.Store.Syslog()

	return settingsSnapshot{
		Hostname:        hostname,
		HostnameDefault: isDefault,
		WifiConfigured:  wifiOK,
		WifiSSID:        creds.SSID,
		MQTT: mqttSettingsView{
			Enabled:     mqtt.Enabled,
			Broker:      mqtt.Broker,
			Port:        mqtt.Port,
			Topic:       mqtt.Topic,
			Username:    mqtt.Username,
			HasPassword: mqtt.Password != "",
			ClientID:    mqtt.ClientID,
		},
		Syslog: syslogSettingsView{
			Server: syslog.Server,
			Port:   syslog.Port,
		},
		HasPassword: d.Store.HasDevicePassword(),
	}
}

// settingsPatch carries an optional subset of settings fields; a nil
// pointer means "leave this field unchanged". The patch is validated
// and applied one field at a time, matching the Settings Store's own
// one-field-per-call mutation API.
type settingsPatch struct {
	Hostname *string `json:"hostname"`

	MQTTEnabled  *bool   `json:"mqtt_enabled"`
	MQTTBroker   *string `json:"mqtt_broker"`
	MQTTPort     *uint16 `json:"mqtt_port"`
	MQTTTopic    *string `json:"mqtt_topic"`
	MQTTUsername *string `json:"mqtt_username"`
	MQTTPassword *string `json:"mqtt_password"`
	MQTTClientID *string `json:"mqtt_client_id"`

	SyslogServer *string `json:"syslog_server"`
	SyslogPort   *uint16 `json:"syslog_port"`

	DevicePassword *string `json:"device_password"`
}

func (d *Deps) handlePostSettings(req *httpserver.Request) httpserver.Response {
	var patch settingsPatch
	if err := json.Unmarshal(req.Body, &patch); err != nil {
		return httpserver.ErrorJSON(400, "invalid json body")
	}

	apply := []func() error{}
	if patch.Hostname != nil {
		h := *patch.Hostname
		apply = append(apply, func() error { return d.Store.SetHostname(h) })
	}
	if patch.MQTTEnabled != nil {
		v := *patch.MQTTEnabled
		apply = append(apply, func() error { return d.Store.SetMQTTEnabled(v) })
	}
	if patch.MQTTBroker != nil {
		v := *patch.MQTTBroker
		apply = append(apply, func() error { return d.Store.SetMQTTBroker(v) })
	}
	if patch.MQTTPort != nil {
		v := *patch.MQTTPort
		apply = append(apply, func() error { return d.Store.SetMQTTPort(v) })
	}
	if patch.MQTTTopic != nil {
		v := *patch.MQTTTopic
		apply = append(apply, func() error { return d.Store.SetMQTTTopic(v) })
	}
	if patch.MQTTUsername != nil {
		v := *patch.MQTTUsername
		apply = append(apply, func() error { return d.Store.SetMQTTUsername(v) })
	}
	if patch.MQTTPassword != nil {
		v := *patch.MQTTPassword
		apply = append(apply, func() error { return d.Store.SetMQTTPassword(v) })
	}
	if patch.MQTTClientID != nil {
		v := *patch.MQTTClientID
		apply = append(apply, func() error { return d.Store.SetMQTTClientID(v) })
	}
	if patch.SyslogServer != nil {
		v := *patch.SyslogServer
		apply = append(apply, func() error { return d.Store.SetSyslogServer(v) })
	}
	if patch.SyslogPort != nil {
		v := *patch.SyslogPort
		apply = append(apply, func() error { return d.Store.SetSyslogPort(v) })
	}
	if patch.DevicePassword != nil {
		v := *patch.DevicePassword
		apply = append(apply, func() error {
			if err := d.Store.SetDevicePassword(v); err != nil {
				return err
			}
			d.Auth.RegenerateToken()
			return nil
		})
	}

	for _, f := range apply {
		if err := f(); err != nil {
			return httpserver.ErrorJSON(400, err.Error())
		}
	}

	if patch.MQTTEnabled != nil || patch.MQTTBroker != nil || patch.MQTTTopic != nil ||
		patch.MQTTUsername != nil || patch.MQTTPassword != nil || patch.MQTTClientID != nil ||
		patch.MQTTPort != nil {
		d.PubSub.Reconnect()
	}

	return httpserver.JSON(200, d.snapshot())
}
