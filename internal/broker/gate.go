package broker

import "crypto/subtle"

// Gate validates the shared device auth key presented on retrieval and
// refresh. One secret gates every device; there is no per-device scoping,
// rate limiting, or lockout.
type Gate struct {
	authKey string
}

// NewGate creates a Gate for the configured shared secret.
func NewGate(authKey string) *Gate {
	return &Gate{authKey: authKey}
}

// Authorize succeeds only if the presented key matches the configured secret
// and the device identifier is non-empty. Comparison is constant-time.
func (g *Gate) Authorize(authKey, deviceID string) error {
	if subtle.ConstantTimeCompare([]byte(authKey), []byte(g.authKey)) != 1 || deviceID == "" {
		return ErrUnauthorized
	}
	return nil
}
