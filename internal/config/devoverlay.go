package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DevOverlay holds the desktop/dev-mode configuration that, on real
// hardware, has no analog: which TCP/UDP ports to bind, where the
// emulated flash sector file lives, and whether USB HID reports are
// written to a real gadgetfs device or just recorded in memory. It is
// read once at startup via viper (YAML file + NETHID_-prefixed env vars)
// and, in dev mode only, hot-reloaded on file change.
type DevOverlay struct {
	HTTPPort       int    `mapstructure:"http_port"`
	WebSocketPort  int    `mapstructure:"websocket_port"`
	UDPPort        int    `mapstructure:"udp_port"`
	FlashFilePath  string `mapstructure:"flash_file_path"`
	GadgetFSDir    string `mapstructure:"gadgetfs_dir"`
	SimulateHID    bool   `mapstructure:"simulate_hid"`
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	LogFile        string `mapstructure:"log_file"`
	LogMaxSizeMB   int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups  int    `mapstructure:"log_max_backups"`
}

// DefaultDevOverlay returns the overlay defaults used when no config file
// or environment variable overrides them.
func DefaultDevOverlay() *DevOverlay {
	return &DevOverlay{
		HTTPPort:      8080,
		WebSocketPort: 8080, // the framed channel upgrades in-place on the HTTP port
		UDPPort:       4444,
		FlashFilePath: "./nethid-settings.bin",
		GadgetFSDir:   "/dev",
		SimulateHID:   true,
		LogLevel:      "info",
		LogFormat:     "text",
		LogFile:       "",
		LogMaxSizeMB:  50,
		LogMaxBackups: 3,
	}
}

// LoadDevOverlay reads the dev-mode overlay from cfgFile (or the default
// search path if empty) and environment variables prefixed NETHID_. It
// never touches the settings record itself — that remains exclusively
// the Store's responsibility.
func LoadDevOverlay(cfgFile string) (*DevOverlay, error) {
	overlay := DefaultDevOverlay()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("nethid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/nethid-bridge")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("NETHID")
	for _, key := range []string{"http_port", "websocket_port", "udp_port", "flash_file_path", "gadgetfs_dir", "simulate_hid", "log_level", "log_format", "log_file", "log_max_size_mb", "log_max_backups"} {
		v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load dev overlay: %w", err)
		}
	}

	if err := v.Unmarshal(overlay); err != nil {
		return nil, fmt.Errorf("load dev overlay: %w", err)
	}

	return overlay, nil
}

// WatchDevOverlay hot-reloads the overlay file in dev mode, invoking
// onChange with the freshly parsed overlay whenever it is rewritten. It
// is never wired on the embedded build — cmd/nethid-bridge enables it
// whenever a --config file is given.
func WatchDevOverlay(cfgFile string, onChange func(*DevOverlay)) error {
	if cfgFile == "" {
		return fmt.Errorf("watch dev overlay: no config file path given")
	}
	abs, err := filepath.Abs(cfgFile)
	if err != nil {
		return fmt.Errorf("watch dev overlay: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("watch dev overlay: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch dev overlay: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dev overlay: %w", err)
	}

	go func() {
		defer watcher.Close()
		for event := range watcher.Events {
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			overlay, err := LoadDevOverlay(cfgFile)
			if err != nil {
				log.Warn("dev overlay reload failed", "error", err)
				continue
			}
			onChange(overlay)
		}
	}()

	return nil
}
