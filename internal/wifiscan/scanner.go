// Package wifiscan implements the cached, asynchronous Wi-Fi network
// scan the provisioning web UI polls: a scan runs in the background,
// results are deduplicated by SSID (keeping the strongest signal) and
// sorted by RSSI, and the last completed scan stays available until
// the next one finishes.
package wifiscan

import (
	"errors"
	"sort"
	"sync"

	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("wifiscan")

// MaxNetworks caps how many deduplicated networks are kept, bounded by
// the HTTP response buffer the results are eventually serialized into.
const MaxNetworks = 8

// ErrScanInProgress is returned by Start when a scan is already running.
var ErrScanInProgress = errors.New("wifiscan: scan already in progress")

// Network is one deduplicated, sorted scan result.
type Network struct {
	SSID    string
	RSSI    int16
	Auth    string
	Channel uint8
}

// Radio drives the actual scan against the network hardware. Scan
// blocks until the scan completes and returns every raw result seen,
// duplicates and all; Scanner owns deduplication and ordering.
type Radio interface {
	Scan() ([]Network, error)
}

// Scanner caches the results of the most recently completed scan and
// serializes scan requests, the way a single radio can only run one
// scan at a time.
type Scanner struct {
	radio Radio

	mu       sync.Mutex
	scanning bool
	networks []Network
}

// NewScanner returns a Scanner driving radio.
func NewScanner(radio Radio) *Scanner {
	return &Scanner{radio: radio}
}

// Start begins a scan in the background. It is idempotent: calling it
// while a scan is already running returns ErrScanInProgress rather
// than queuing a second one.
func (s *Scanner) Start() error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return ErrScanInProgress
	}
	s.scanning = true
	s.mu.Unlock()

	log.Info("scan started")
	go s.run()
	return nil
}

func (s *Scanner) run() {
	raw, err := s.radio.Scan()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false

	if err != nil {
		log.Warn("scan failed", "err", err)
		return
	}

	s.networks = finalize(raw)
	log.Info("scan complete", "networks", len(s.networks))
}

// Active reports whether a scan is currently running.
func (s *Scanner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Results returns the cached networks from the last completed scan
// and whether a scan is currently in progress.
func (s *Scanner) Results() (networks []Network, scanning bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Network, len(s.networks))
	copy(out, s.networks)
	return out, s.scanning
}

// finalize deduplicates by SSID (keeping the strongest RSSI seen),
// drops hidden (empty-SSID) networks, sorts strongest-first, and caps
// the result at MaxNetworks.
func finalize(raw []Network) []Network {
	bySSID := make(map[string]Network, len(raw))
	order := make([]string, 0, len(raw))

	for _, n := range raw {
		if n.SSID == "" {
			continue
		}
		existing, ok := bySSID[n.SSID]
		if !ok {
			bySSID[n.SSID] = n
			order = append(order, n.SSID)
			continue
		}
		if n.RSSI > existing.RSSI {
			bySSID[n.SSID] = n
		}
	}

	deduped := make([]Network, 0, len(order))
	for _, ssid := range order {
		deduped = append(deduped, bySSID[ssid])
	}

	sort.Slice(deduped, func(i, j int) bool {
		return deduped[i].RSSI > deduped[j].RSSI
	})

	if len(deduped) > MaxNetworks {
		deduped = deduped[:MaxNetworks]
	}
	return deduped
}
