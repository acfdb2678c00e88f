// Package auth implements the device's optional password-based session
// auth: a single shared session token gating the HTTP API and framed
// control channel when (and only when) a device password is configured.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/desaster/nethid-bridge/internal/config"
	"github.com/desaster/nethid-bridge/internal/logging"
)

var log = logging.L("auth")

// TokenRawLen is the number of random bytes backing a session token.
const TokenRawLen = 16

// TokenHexLen is the hex-encoded token length exposed over HTTP.
const TokenHexLen = TokenRawLen * 2

// Context holds the current session token and validates credentials
// against the Settings Store's device password. A zero Context (no
// password configured) leaves every endpoint unauthenticated, matching
// the original firmware's "no password means no auth" behavior.
type Context struct {
	mu    sync.RWMutex
	store *config.Store

	enabled bool
	raw     [TokenRawLen]byte
	hex     string
}

// New builds a Context from the store's current device password,
// generating a session token immediately if one is configured.
func New(store *config.Store) *Context {
	c := &Context{store: store}
	c.RegenerateToken()
	return c
}

// IsEnabled reports whether a device password is configured and a
// session token exists. When false, every request is allowed through.
func (c *Context) IsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// ValidatePassword checks a plaintext password against the stored device
// password in constant time.
func (c *Context) ValidatePassword(password string) bool {
	stored, ok := c.store.DevicePassword()
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

// ValidateToken checks a hex-encoded token against the current session
// token in constant time.
func (c *Context) ValidateToken(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled || len(token) != TokenHexLen {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.hex), []byte(token)) == 1
}

// ValidateTokenRaw checks raw token bytes (as carried by the legacy UDP
// listener's packets) against the current session token in constant time.
func (c *Context) ValidateTokenRaw(raw []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled || len(raw) != TokenRawLen {
		return false
	}
	return subtle.ConstantTimeCompare(c.raw[:], raw) == 1
}

// Token returns the current session token, hex-encoded. ok is false if
// auth is disabled.
func (c *Context) Token() (token string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.enabled {
		return "", false
	}
	return c.hex, true
}

// RegenerateToken mints a fresh session token if a device password is
// configured, or disables auth entirely if not. Call after any device
// password change.
func (c *Context) RegenerateToken() {
	if !c.store.HasDevicePassword() {
		c.mu.Lock()
		c.enabled = false
		c.raw = [TokenRawLen]byte{}
		c.hex = ""
		c.mu.Unlock()
		log.Info("auth disabled: no device password configured")
		return
	}

	var raw [TokenRawLen]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; there is no safe fallback, so auth stays disabled.
		log.Error("failed to generate session token, auth disabled", "error", err)
		c.mu.Lock()
		c.enabled = false
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.raw = raw
	c.hex = hex.EncodeToString(raw[:])
	c.enabled = true
	c.mu.Unlock()
	log.Info("auth enabled: session token generated")
}

// ErrUnauthorized is returned by request middleware on auth failure.
var ErrUnauthorized = fmt.Errorf("unauthorized")
