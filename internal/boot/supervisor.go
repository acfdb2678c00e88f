// Package boot implements the boot/provisioning supervisor: the
// decision, made once at startup, between self-hosted AP provisioning
// mode and normal station-mode client operation, plus the long-press
// button that lets an operator force provisioning mode back on.
package boot

import "github.com/desaster/nethid-bridge/internal/config"

// Mode is the network mode the supervisor chose at boot.
type Mode int

const (
	// ModeAP runs the self-hosted provisioning access point. Only the
	// HTTP server and Wi-Fi scan subsystem run in this mode.
	ModeAP Mode = iota
	// ModeSTA joins a configured Wi-Fi network as a client. Every
	// subsystem (HTTP, framed channel, pub/sub, legacy UDP) starts once
	// the link reaches "address acquired".
	ModeSTA
)

func (m Mode) String() string {
	if m == ModeAP {
		return "ap"
	}
	return "sta"
}

// Decision is the outcome of Decide: which mode to boot into, and the
// Wi-Fi credentials to join with in ModeSTA.
type Decision struct {
	Mode  Mode
	Creds config.WifiCredentials
}

// Decide consults the Settings Store to choose a boot mode, clearing the
// force-provisioning flag if it was the reason AP mode was chosen (it is
// a one-shot request, not a standing configuration).
func Decide(store *config.Store) (Decision, error) {
	if store.ForceAP() {
		if err := store.ClearForceAP(); err != nil {
			return Decision{}, err
		}
		return Decision{Mode: ModeAP}, nil
	}

	creds, ok := store.WifiCredentialsGet()
	if !ok {
		return Decision{Mode: ModeAP}, nil
	}

	return Decision{Mode: ModeSTA, Creds: creds}, nil
}
