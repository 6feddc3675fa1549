package credstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record exists for a device identifier.
var ErrNotFound = errors.New("credential record not found")

// Record holds the stored token pair and expiry metadata for one device.
// DeviceID is the caller-supplied persistent identifier and the sole key.
type Record struct {
	DeviceID     string `json:"device_id" gorm:"primaryKey"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // validity window in seconds, as of Timestamp
	Timestamp    int64  `json:"timestamp"`  // unix seconds of last write
}

// Store reads and writes credential records keyed by device identifier.
//
// Implementations must be safe for concurrent use. Writes are
// last-writer-wins; no conditional update is provided.
type Store interface {
	// Get returns the record for the device. Returns ErrNotFound if absent.
	Get(ctx context.Context, deviceID string) (*Record, error)

	// Put creates or fully overwrites the record for record.DeviceID.
	Put(ctx context.Context, record *Record) error

	// Update overwrites an existing record. Returns ErrNotFound if absent.
	Update(ctx context.Context, record *Record) error

	// Delete removes the record for the device. Returns ErrNotFound if absent.
	Delete(ctx context.Context, deviceID string) error

	// Close releases resources held by the backend.
	Close() error
}
