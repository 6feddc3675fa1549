// Package broker coordinates the credential lifecycle for relay devices:
// grant on callback, gated retrieval, and gated refresh with optional
// rotation. It owns the rotation and revocation policy; the HTTP layer only
// maps its errors to status codes.
package broker
