package config

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("config")

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)

// WifiCredentials is the stored SSID/passphrase pair.
type WifiCredentials struct {
	SSID     string
	Password string
}

// MQTTSettings mirrors the broker fields held in the settings record.
type MQTTSettings struct {
	Enabled  bool
	Broker   string
	Port     uint16
	Topic    string
	Username string
	Password string
	ClientID string
}

// SyslogSettings mirrors the remote log server fields held in the
// settings record.
type SyslogSettings struct {
	Server string
	Port   uint16
}

// Store is the Settings Store: it owns the single FlashFile-backed
// settings record and serializes all reads/mutations through mu so
// concurrent API handlers and the boot supervisor never race on a
// read-modify-write cycle.
type Store struct {
	mu          sync.Mutex
	flash       FlashFile
	macSuffix   string // used to derive the default hostname
}

// NewStore creates a Settings Store backed by flash. macSuffix is the
// last three octets of the device's MAC address (as used by
// DefaultHostname) when no hostname has been configured.
func NewStore(flash FlashFile, macSuffix string) *Store {
	return &Store{flash: flash, macSuffix: macSuffix}
}

func (s *Store) readRecord() *record {
	data, err := s.flash.ReadSector()
	if err != nil {
		log.Warn("settings sector unreadable, using defaults", "error", err)
		return freshRecord()
	}

	r, err := unmarshalRecord(data[:recordSize()])
	if err != nil {
		log.Warn("settings sector invalid, using defaults", "error", err)
		return freshRecord()
	}
	return r
}

func (s *Store) writeRecord(r *record) error {
	data, err := r.marshal()
	if err != nil {
		return err
	}
	return s.flash.WriteSector(data)
}

// mutate performs a read-modify-write cycle over the persisted record.
// The entire sector is rewritten on every call, matching the original
// firmware's settings_set_* functions which each read, mutate one field,
// recompute the checksum, and rewrite the whole sector.
func (s *Store) mutate(f func(r *record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.readRecord()
	f(r)
	if err := s.writeRecord(r); err != nil {
		return fmt.Errorf("settings store: %w", err)
	}
	return nil
}

//------------------------------------------------------------------+
// Force AP Mode Flag
//------------------------------------------------------------------+

// ForceAP reports whether the next boot should start in AP provisioning
// mode regardless of stored Wi-Fi credentials.
func (s *Store) ForceAP() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRecord().ForceAP != 0
}

// SetForceAP sets the force-AP flag. Called by the boot supervisor before
// rebooting in response to a long button press.
func (s *Store) SetForceAP() error {
	return s.mutate(func(r *record) {
		r.ForceAP = 1
	})
}

// ClearForceAP clears the force-AP flag. boot.Decide calls it at boot
// when the flag is what selects AP mode, so the flag applies to one
// boot only.
func (s *Store) ClearForceAP() error {
	return s.mutate(func(r *record) {
		r.ForceAP = 0
	})
}

//------------------------------------------------------------------+
// Wi-Fi Credentials
//------------------------------------------------------------------+

// WifiCredentialsExist reports whether a valid SSID/password pair is
// stored.
func (s *Store) WifiCredentialsExist() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readRecord().HasWifiCreds != 0
}

// WifiCredentialsGet returns the stored Wi-Fi credentials. ok is false if
// none are stored.
func (s *Store) WifiCredentialsGet() (creds WifiCredentials, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readRecord()
	if r.HasWifiCreds == 0 {
		return WifiCredentials{}, false
	}
	return WifiCredentials{
		SSID:     getString(r.WifiSSID[:]),
		Password: getString(r.WifiPassword[:]),
	}, true
}

// WifiCredentialsSet validates and stores new Wi-Fi credentials.
func (s *Store) WifiCredentialsSet(ssid, password string) error {
	if len(ssid) == 0 || len(ssid) > wifiSSIDMaxLen {
		return fmt.Errorf("invalid SSID length: %d", len(ssid))
	}
	if len(password) > wifiPasswordMaxLen {
		return fmt.Errorf("invalid password length: %d", len(password))
	}

	err := s.mutate(func(r *record) {
		setString(r.WifiSSID[:], ssid)
		setString(r.WifiPassword[:], password)
		r.HasWifiCreds = 1
	})
	if err == nil {
		log.Info("wifi credentials saved", "ssid", ssid)
	}
	return err
}

//------------------------------------------------------------------+
// Hostname
//------------------------------------------------------------------+

// DefaultHostname derives the factory-default hostname from the device's
// MAC suffix, e.g. "nethid-a1b2c3".
func (s *Store) DefaultHostname() string {
	return fmt.Sprintf("nethid-%s", s.macSuffix)
}

// ValidateHostname enforces RFC 1123 label rules plus the settings
// record's length limit.
func ValidateHostname(hostname string) error {
	if len(hostname) == 0 || len(hostname) > hostnameMaxLen {
		return fmt.Errorf("hostname length must be 1-%d characters", hostnameMaxLen)
	}
	if !hostnameRegex.MatchString(hostname) {
		return fmt.Errorf("hostname %q is not a valid RFC 1123 label", hostname)
	}
	return nil
}

// Hostname returns the configured hostname, or the MAC-derived default
// and isDefault=true if none has been set.
func (s *Store) Hostname() (hostname string, isDefault bool) {
	s.mu.Lock()
	r := s.readRecord()
	s.mu.Unlock()

	if r.Flags&flagHostname != 0 {
		if h := getString(r.Hostname[:]); h != "" {
			return h, false
		}
	}
	return s.DefaultHostname(), true
}

// SetHostname validates and stores a hostname override.
func (s *Store) SetHostname(hostname string) error {
	if err := ValidateHostname(hostname); err != nil {
		return err
	}
	return s.mutate(func(r *record) {
		setString(r.Hostname[:], hostname)
		r.Flags |= flagHostname
	})
}

//------------------------------------------------------------------+
// MQTT Settings
//------------------------------------------------------------------+

// MQTT returns the stored broker configuration, substituting defaults
// for any field that was never explicitly configured.
func (s *Store) MQTT() MQTTSettings {
	s.mu.Lock()
	r := s.readRecord()
	s.mu.Unlock()

	settings := MQTTSettings{
		Enabled: r.Flags&flagMQTTEnabled != 0 && r.MQTTEnabled != 0,
		Port:    DefaultMQTTPort,
	}
	if r.Flags&flagMQTTBroker != 0 {
		settings.Broker = getString(r.MQTTBroker[:])
	}
	if r.Flags&flagMQTTPort != 0 && r.MQTTPort != 0 {
		settings.Port = r.MQTTPort
	}
	if r.Flags&flagMQTTTopic != 0 {
		settings.Topic = getString(r.MQTTTopic[:])
	}
	if r.Flags&flagMQTTUser != 0 {
		settings.Username = getString(r.MQTTUsername[:])
	}
	if r.Flags&flagMQTTPass != 0 {
		settings.Password = getString(r.MQTTPassword[:])
	}
	if r.Flags&flagMQTTClientID != 0 {
		settings.ClientID = getString(r.MQTTClientID[:])
	} else {
		settings.ClientID, _ = s.Hostname()
	}
	return settings
}

// SetMQTTEnabled toggles the Pub/Sub Client on or off.
func (s *Store) SetMQTTEnabled(enabled bool) error {
	return s.mutate(func(r *record) {
		if enabled {
			r.MQTTEnabled = 1
		} else {
			r.MQTTEnabled = 0
		}
		r.Flags |= flagMQTTEnabled
	})
}

// SetMQTTBroker stores the broker hostname/IP.
func (s *Store) SetMQTTBroker(broker string) error {
	if len(broker) > mqttBrokerMaxLen {
		return fmt.Errorf("mqtt broker too long: %d", len(broker))
	}
	return s.mutate(func(r *record) {
		setString(r.MQTTBroker[:], broker)
		r.Flags |= flagMQTTBroker
	})
}

// SetMQTTPort stores the broker TCP port.
func (s *Store) SetMQTTPort(port uint16) error {
	if port == 0 {
		return fmt.Errorf("invalid mqtt port: 0")
	}
	return s.mutate(func(r *record) {
		r.MQTTPort = port
		r.Flags |= flagMQTTPort
	})
}

// SetMQTTTopic stores the base topic prefix.
func (s *Store) SetMQTTTopic(topic string) error {
	if len(topic) > mqttTopicMaxLen {
		return fmt.Errorf("mqtt topic too long: %d", len(topic))
	}
	return s.mutate(func(r *record) {
		setString(r.MQTTTopic[:], topic)
		r.Flags |= flagMQTTTopic
	})
}

// SetMQTTUsername stores (or, given "", clears) the broker username.
func (s *Store) SetMQTTUsername(username string) error {
	if len(username) > mqttUsernameMaxLen {
		return fmt.Errorf("mqtt username too long: %d", len(username))
	}
	return s.mutate(func(r *record) {
		setString(r.MQTTUsername[:], username)
		if username != "" {
			r.Flags |= flagMQTTUser
		} else {
			r.Flags &^= flagMQTTUser
		}
	})
}

// SetMQTTPassword stores (or, given "", clears) the broker password.
func (s *Store) SetMQTTPassword(password string) error {
	if len(password) > mqttPasswordMaxLen {
		return fmt.Errorf("mqtt password too long: %d", len(password))
	}
	return s.mutate(func(r *record) {
		setString(r.MQTTPassword[:], password)
		if password != "" {
			r.Flags |= flagMQTTPass
		} else {
			r.Flags &^= flagMQTTPass
		}
	})
}

// SetMQTTClientID stores (or, given "", clears, falling back to hostname)
// the MQTT client identifier.
func (s *Store) SetMQTTClientID(clientID string) error {
	if len(clientID) > mqttClientIDMaxLen {
		return fmt.Errorf("mqtt client id too long: %d", len(clientID))
	}
	return s.mutate(func(r *record) {
		setString(r.MQTTClientID[:], clientID)
		if clientID != "" {
			r.Flags |= flagMQTTClientID
		} else {
			r.Flags &^= flagMQTTClientID
		}
	})
}

//------------------------------------------------------------------+
// Syslog Settings
//------------------------------------------------------------------+

// Syslog returns the stored remote log server configuration.
func (s *Store) Syslog() SyslogSettings {
	s.mu.Lock()
	r := s.readRecord()
	s.mu.Unlock()

	settings := SyslogSettings{Port: DefaultSyslogPort}
	if r.Flags&flagSyslogServer != 0 {
		settings.Server = getString(r.SyslogServer[:])
	}
	if r.Flags&flagSyslogPort != 0 && r.SyslogPort != 0 {
		settings.Port = r.SyslogPort
	}
	return settings
}

// SetSyslogServer stores (or, given "", clears and disables) the remote
// log server address.
func (s *Store) SetSyslogServer(server string) error {
	if len(server) > syslogServerMaxLen {
		return fmt.Errorf("syslog server too long: %d", len(server))
	}
	return s.mutate(func(r *record) {
		setString(r.SyslogServer[:], server)
		if server != "" {
			r.Flags |= flagSyslogServer
		} else {
			r.Flags &^= flagSyslogServer
		}
	})
}

// SetSyslogPort stores the remote log server's UDP port.
func (s *Store) SetSyslogPort(port uint16) error {
	if port == 0 {
		return fmt.Errorf("invalid syslog port: 0")
	}
	return s.mutate(func(r *record) {
		r.SyslogPort = port
		r.Flags |= flagSyslogPort
	})
}

//------------------------------------------------------------------+
// Device Password
//------------------------------------------------------------------+

// HasDevicePassword reports whether a device access password is
// configured. Auth is disabled entirely when this is false.
func (s *Store) HasDevicePassword() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readRecord()
	return r.Flags&flagDevicePassword != 0 && getString(r.DevicePassword[:]) != ""
}

// DevicePassword returns the stored device access password. ok is false
// if none is configured.
func (s *Store) DevicePassword() (password string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.readRecord()
	if r.Flags&flagDevicePassword == 0 {
		return "", false
	}
	password = getString(r.DevicePassword[:])
	return password, password != ""
}

// SetDevicePassword stores (or, given "", clears) the device access
// password that gates HTTP/framed-channel auth.
func (s *Store) SetDevicePassword(password string) error {
	if len(password) > devicePasswordMaxLen {
		return fmt.Errorf("device password too long: %d", len(password))
	}
	return s.mutate(func(r *record) {
		setString(r.DevicePassword[:], password)
		if password != "" {
			r.Flags |= flagDevicePassword
		} else {
			r.Flags &^= flagDevicePassword
		}
	})
}
