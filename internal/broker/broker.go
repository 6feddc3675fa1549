package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hllvc/tokenrelay/internal/credstore"
	"github.com/hllvc/tokenrelay/internal/spotify"
)

// TokenExchanger performs the OAuth exchanges against the authorization server.
type TokenExchanger interface {
	// AuthCodeURL builds the consent redirect URL carrying state verbatim.
	AuthCodeURL(state string) string

	// ExchangeCode trades an authorization code for an initial token pair.
	ExchangeCode(ctx context.Context, code string) (*spotify.Grant, error)

	// ExchangeRefreshToken trades a refresh token for a new access token,
	// optionally rotating the refresh token.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*spotify.Grant, error)
}

// Credentials is what a polling device receives: the current access token and
// its validity window. The refresh token never leaves the relay.
type Credentials struct {
	AccessToken string
	ExpiresIn   int64
}

// Broker is the token lifecycle coordinator. Per device the record moves
// through grant, zero or more refreshes, and deletion on refresh rejection.
//
// Concurrent operations on the same device are not serialized; record writes
// are last-writer-wins. Accepted for the single-device, infrequent-refresh
// usage pattern.
type Broker struct {
	exchanger TokenExchanger
	gate      *Gate
	store     credstore.Store
}

// New creates a Broker wiring the exchanger, gate and store together.
func New(exchanger TokenExchanger, gate *Gate, store credstore.Store) *Broker {
	return &Broker{
		exchanger: exchanger,
		gate:      gate,
		store:     store,
	}
}

// AuthorizeURL builds the consent redirect URL for the device. The device
// identifier is opaque and unauthenticated here; authentication happens at
// credential retrieval, not at initiation.
func (b *Broker) AuthorizeURL(deviceID string) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("%w: deviceId", ErrInvalidRequest)
	}
	return b.exchanger.AuthCodeURL(deviceID), nil
}

// Grant exchanges an authorization code and writes a new credential record,
// fully overwriting any previous one. On exchange failure nothing is written.
func (b *Broker) Grant(ctx context.Context, deviceID, code string) error {
	grant, err := b.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		slog.ErrorContext(ctx, "authorization code exchange failed", "device_id", deviceID, "error", err)
		return fmt.Errorf("exchanging authorization code: %w", err)
	}

	record := &credstore.Record{
		DeviceID:     deviceID,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn,
		Timestamp:    time.Now().Unix(),
	}
	if err := b.store.Put(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to store credential record", "device_id", deviceID, "error", err)
		return fmt.Errorf("storing credential record: %w", err)
	}

	slog.InfoContext(ctx, "credentials granted", "device_id", deviceID)
	return nil
}

// Retrieve returns the stored access token after the gate passes. It never
// calls the authorization server and never checks expiry: the device requests
// refresh on its own schedule, keeping polls cheap.
func (b *Broker) Retrieve(ctx context.Context, deviceID, authKey string) (*Credentials, error) {
	if err := b.gate.Authorize(authKey, deviceID); err != nil {
		return nil, err
	}

	record, err := b.store.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	return &Credentials{
		AccessToken: record.AccessToken,
		ExpiresIn:   record.ExpiresIn,
	}, nil
}

// Refresh exchanges the stored refresh token for a new access token after the
// gate passes. If the authorization server rejects the refresh token the
// record is deleted, forcing the device back through the consent flow. If the
// response omits a rotated refresh token the stored one is retained.
func (b *Broker) Refresh(ctx context.Context, deviceID, authKey string) (*Credentials, error) {
	if err := b.gate.Authorize(authKey, deviceID); err != nil {
		return nil, err
	}

	record, err := b.store.Get(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if record.RefreshToken == "" {
		slog.ErrorContext(ctx, "stored record has no refresh token", "device_id", deviceID)
		return nil, ErrRefreshTokenMissing
	}

	grant, err := b.exchanger.ExchangeRefreshToken(ctx, record.RefreshToken)
	if err != nil {
		var upstreamErr *spotify.UpstreamError
		if errors.As(err, &upstreamErr) {
			slog.ErrorContext(ctx, "refresh token rejected, deleting record", "device_id", deviceID, "error", upstreamErr)
			if delErr := b.store.Delete(ctx, deviceID); delErr != nil && !errors.Is(delErr, credstore.ErrNotFound) {
				slog.ErrorContext(ctx, "failed to delete rejected record", "device_id", deviceID, "error", delErr)
			}
			return nil, &RefreshRejectedError{Cause: upstreamErr}
		}
		// Transport failure: the provider never answered, record stays intact.
		slog.ErrorContext(ctx, "refresh exchange failed", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("exchanging refresh token: %w", err)
	}

	rotated := grant.RefreshToken != "" && grant.RefreshToken != record.RefreshToken

	record.AccessToken = grant.AccessToken
	record.ExpiresIn = grant.ExpiresIn
	record.Timestamp = time.Now().Unix()
	// Rotation is optional on the provider's part: never overwrite the stored
	// refresh token with an empty value.
	if grant.RefreshToken != "" {
		record.RefreshToken = grant.RefreshToken
	}

	if err := b.store.Update(ctx, record); err != nil {
		slog.ErrorContext(ctx, "failed to update credential record", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("updating credential record: %w", err)
	}

	slog.InfoContext(ctx, "credentials refreshed", "device_id", deviceID, "rotated", rotated)

	return &Credentials{
		AccessToken: record.AccessToken,
		ExpiresIn:   record.ExpiresIn,
	}, nil
}
