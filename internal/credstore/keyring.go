package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore persists records in OS-native credential storage
// (macOS Keychain, Windows Credential Manager, Linux Secret Service).
// Each device gets its own keyring entry under the configured service name,
// with the record JSON-encoded as the secret value.
type KeyringStore struct {
	service string
}

// Compile-time check to ensure KeyringStore implements Store
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore scoped to the given service identifier.
func NewKeyringStore(service string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}

	return &KeyringStore{service: service}, nil
}

// Get returns the record for the device. Returns ErrNotFound if absent.
func (k *KeyringStore) Get(ctx context.Context, deviceID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	secret, err := keyring.Get(k.service, deviceID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var record Record
	if err := json.Unmarshal([]byte(secret), &record); err != nil {
		return nil, fmt.Errorf("malformed keyring entry for device %s: %w", deviceID, err)
	}
	return &record, nil
}

// Put creates or fully overwrites the record for record.DeviceID.
func (k *KeyringStore) Put(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	secret, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return keyring.Set(k.service, record.DeviceID, string(secret))
}

// Update overwrites an existing record. Returns ErrNotFound if absent.
func (k *KeyringStore) Update(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := keyring.Get(k.service, record.DeviceID); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return k.Put(ctx, record)
}

// Delete removes the record for the device. Returns ErrNotFound if absent.
func (k *KeyringStore) Delete(ctx context.Context, deviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := keyring.Delete(k.service, deviceID); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Close is a no-op; the keyring has no connection to release.
func (k *KeyringStore) Close() error {
	return nil
}
