package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"

	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/logging"
	"github.com/desaster/nethid-bridge/pkg/device"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "nethid-bridge",
	Short: "NetHID Bridge",
	Long:  `NetHID Bridge - network-attached USB HID bridge daemon`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bridge",
	Run: func(cmd *cobra.Command, args []string) {
		runBridge()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nethid-bridge v%s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print host and provisioning status",
	Run: func(cmd *cobra.Command, args []string) {
		checkStatus()
	},
}

var provisionResetCmd = &cobra.Command{
	Use:   "provision-reset",
	Short: "Force the next boot into AP provisioning mode",
	Long: `Sets the force-AP flag in the Settings Store and exits, for operators
on the dev/desktop build who have no physical provisioning button to hold.`,
	Run: func(cmd *cobra.Command, args []string) {
		provisionReset()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "dev overlay config file (default ./nethid.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(provisionResetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(overlay *config.DevOverlay) (*config.Store, error) {
	flash, err := config.NewFileFlash(overlay.FlashFilePath)
	if err != nil {
		return nil, fmt.Errorf("open settings file: %w", err)
	}
	return config.NewStore(flash, macSuffix()), nil
}

// runBridge loads the dev overlay, opens the Settings Store, wires a
// device.Context from it and runs until a shutdown signal arrives.
func runBridge() {
	overlay, err := config.LoadDevOverlay(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load dev overlay: %v\n", err)
		os.Exit(1)
	}

	logOutput := io.Writer(os.Stdout)
	if overlay.LogFile != "" {
		rotator, err := logging.NewRotatingWriter(overlay.LogFile, overlay.LogMaxSizeMB, overlay.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file, logging to stdout only: %v\n", err)
		} else {
			defer rotator.Close()
			logOutput = logging.TeeWriter(os.Stdout, rotator)
		}
	}

	logging.Init(overlay.LogFormat, overlay.LogLevel, logOutput)
	log = logging.L("main")

	if cfgFile != "" {
		if err := config.WatchDevOverlay(cfgFile, func(o *config.DevOverlay) {
			if logging.SetShipperLevel(o.LogLevel) {
				log.Info("log level updated from dev overlay change", "level", o.LogLevel)
			}
		}); err != nil {
			log.Warn("dev overlay hot-reload not active", "error", err)
		}
	}

	store, err := openStore(overlay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	syslog := store.Syslog()
	if syslog.Server != "" {
		logging.InitShipper(logging.ShipperConfig{
			Hostname:   hostnameOrDefault(store),
			ServerAddr: fmt.Sprintf("%s:%d", syslog.Server, syslog.Port),
			MinLevel:   overlay.LogLevel,
		})
		defer logging.StopShipper()
	}

	mac := discoverMAC()
	log.Info("starting nethid-bridge", "version", version, "mac", mac)

	cfg := device.Config{
		Store:     store,
		MACSuffix: macSuffix(),
		MAC:       mac,
		Version:   version,
		HTTPAddr:  fmt.Sprintf(":%d", overlay.HTTPPort),
		UDPAddr:   fmt.Sprintf(":%d", overlay.UDPPort),
		IP:        localIP,
		Reboot:    requestReboot,
	}

	if !overlay.SimulateHID {
		real, err := openRealTransport(overlay.GadgetFSDir)
		if err != nil {
			log.Error("failed to open real HID transport, falling back to simulation", "error", err)
		} else {
			cfg.Transport = real
		}
	}

	ctx, err := device.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build device context: %v\n", err)
		os.Exit(1)
	}

	if err := ctx.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	log.Info("nethid-bridge is running", "mode", ctx.Mode())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	ctx.Close()
	log.Info("stopped")
}

// requestReboot has no watchdog hardware to arm on this platform; it
// logs intent and exits, relying on an external supervisor (systemd
// Restart=always, or similar) to actually restart the process, the
// same "commit the flag, then let the next boot pick it up" contract
// the button hold uses.
func requestReboot(apMode bool) {
	log.Warn("reboot requested", "ap_mode", apMode)
	go func() {
		time.Sleep(250 * time.Millisecond)
		os.Exit(0)
	}()
}

func provisionReset() {
	overlay, err := config.LoadDevOverlay(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load dev overlay: %v\n", err)
		os.Exit(1)
	}
	store, err := openStore(overlay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := store.SetForceAP(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set force-AP flag: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Force-AP flag set. The bridge will boot into provisioning mode next run.")
}

func checkStatus() {
	overlay, err := config.LoadDevOverlay(cfgFile)
	if err != nil {
		fmt.Println("Status: dev overlay unreadable")
		return
	}
	store, err := openStore(overlay)
	if err != nil {
		fmt.Println("Status: settings file unreadable")
		return
	}

	hostname, isDefault := store.Hostname()
	fmt.Printf("Hostname: %s (default: %t)\n", hostname, isDefault)
	fmt.Printf("Wi-Fi configured: %t\n", store.WifiCredentialsExist())
	fmt.Printf("Force-AP next boot: %t\n", store.ForceAP())
	fmt.Printf("Device password set: %t\n", store.HasDevicePassword())

	mqtt := store.MQTT()
	fmt.Printf("MQTT enabled: %t (broker: %s:%d)\n", mqtt.Enabled, mqtt.Broker, mqtt.Port)

	info, err := host.Info()
	if err != nil {
		log.Warn("host.Info failed", "error", err)
		return
	}
	fmt.Printf("Host uptime: %s\n", (time.Duration(info.Uptime) * time.Second).String())
	fmt.Printf("Host OS: %s %s\n", info.Platform, info.PlatformVersion)
}

// macSuffix derives the last three octets of the host's primary network
// interface MAC address (hex, lowercase), used to name the default
// hostname and, were this the real board, the AP SSID. Falling back to
// a fixed string keeps the dev/desktop build usable on a loopback-only
// host.
func macSuffix() string {
	mac := discoverMAC()
	if mac == "" {
		return "000000"
	}
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return "000000"
	}
	return parts[3] + parts[4] + parts[5]
}

func discoverMAC() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}

func localIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.To4() != nil {
				return ipNet.IP.String()
			}
		}
	}
	return ""
}

func hostnameOrDefault(store *config.Store) string {
	hostname, _ := store.Hostname()
	return hostname
}
