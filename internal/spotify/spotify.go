package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Endpoint defines the OAuth2 endpoints for the Spotify Accounts service.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.spotify.com/authorize",
	TokenURL:  "https://accounts.spotify.com/api/token",
	AuthStyle: oauth2.AuthStyleInHeader, // HTTP Basic client authentication
}

// scopes is the fixed scope set requested for every device. Not configurable.
var scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
}

// UpstreamError is a rejection from the authorization server: the token
// endpoint answered, but with an OAuth error body.
type UpstreamError struct {
	Code        string // RFC 6749 error code (e.g. invalid_grant)
	Description string // provider's error description, may be empty
}

func (e *UpstreamError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("spotify token endpoint: %s: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("spotify token endpoint: %s", e.Code)
}

// TransportError is a failure to complete the HTTP round trip to the token
// endpoint. The provider never saw or never answered the request.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("spotify token endpoint unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Grant is a normalized success response from the token endpoint.
type Grant struct {
	AccessToken  string
	RefreshToken string // may equal the presented token on refresh (no rotation)
	ExpiresIn    int64  // seconds
}

// ExchangerOption configures an Exchanger.
type ExchangerOption func(*exchangerConfig)

// exchangerConfig holds configuration for NewExchanger.
type exchangerConfig struct {
	baseTransport http.RoundTripper
}

// WithTransport sets a custom base transport for token endpoint requests.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) ExchangerOption {
	return func(c *exchangerConfig) {
		c.baseTransport = transport
	}
}

// Exchanger performs authorization-code and refresh-token exchanges.
// Safe for concurrent use.
type Exchanger struct {
	cfg    *oauth2.Config
	client *http.Client
}

// NewExchanger creates an Exchanger for the given client credentials and
// endpoints. redirectURI must exactly match the value registered with the
// authorization server.
func NewExchanger(clientID, clientSecret, redirectURI string, endpoint oauth2.Endpoint, opts ...ExchangerOption) *Exchanger {
	cfg := &exchangerConfig{
		baseTransport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Exchanger{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		client: &http.Client{
			Timeout:   30 * time.Second, // bounds a single exchange; no retries on top
			Transport: cfg.baseTransport,
		},
	}
}

// AuthCodeURL builds the consent redirect URL for the given state value.
// The relay passes the device identifier as state verbatim; it is the only
// linkage back to the device on callback.
func (e *Exchanger) AuthCodeURL(state string) string {
	return e.cfg.AuthCodeURL(state)
}

// ExchangeCode trades a one-time authorization code for an initial token pair.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (*Grant, error) {
	token, err := e.cfg.Exchange(e.oauthContext(ctx), code)
	if err != nil {
		return nil, classify(err)
	}
	return grantFromToken(token), nil
}

// ExchangeRefreshToken trades a refresh token for a new access token. The
// returned Grant's RefreshToken equals the presented one unless the provider
// rotated it.
func (e *Exchanger) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Grant, error) {
	source := e.cfg.TokenSource(e.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, classify(err)
	}
	return grantFromToken(token), nil
}

// oauthContext injects the Exchanger's HTTP client via oauth2's documented
// context key.
func (e *Exchanger) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.client)
}

// classify maps oauth2 failures onto the relay's error taxonomy: an answered
// request with an error body becomes *UpstreamError, everything else
// *TransportError.
func classify(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &UpstreamError{
			Code:        retrieveErr.ErrorCode,
			Description: retrieveErr.ErrorDescription,
		}
	}
	return &TransportError{Err: err}
}

func grantFromToken(token *oauth2.Token) *Grant {
	return &Grant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}
}
