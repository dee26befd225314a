package blink

import "errors"

// Sentinel errors callers branch on with errors.Is. Everything else the
// client returns is a plain wrapped error.
var (
	// ErrAuth marks rejected credentials, a rejected PIN, or an expired
	// token (HTTP 401/403 on any authenticated call).
	ErrAuth = errors.New("authentication rejected")

	// Err2FARequired is returned when the account demands client
	// verification and no PIN source is available.
	Err2FARequired = errors.New("client verification required")

	// ErrDeviceOffline marks a camera the cloud reports as offline or
	// asleep. Per-camera, never fatal.
	ErrDeviceOffline = errors.New("device offline")
)
