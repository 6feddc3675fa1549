package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

const (
	testClientID     = "client-id"
	testClientSecret = "client-secret"
	testRedirectURI  = "https://relay.example.com/callback"
)

// newTestExchanger points an Exchanger at a fake token endpoint.
func newTestExchanger(t *testing.T, handler http.HandlerFunc) *Exchanger {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	endpoint := oauth2.Endpoint{
		AuthURL:   server.URL + "/authorize",
		TokenURL:  server.URL + "/api/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	return NewExchanger(testClientID, testClientSecret, testRedirectURI, endpoint)
}

func writeTokenResponse(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuthCodeURL(t *testing.T) {
	ex := NewExchanger(testClientID, testClientSecret, testRedirectURI, Endpoint)

	raw := ex.AuthCodeURL("device-abc123")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("invalid auth URL: %v", err)
	}

	if !strings.HasPrefix(raw, Endpoint.AuthURL) {
		t.Errorf("auth URL %q does not start with %q", raw, Endpoint.AuthURL)
	}

	query := parsed.Query()
	want := map[string]string{
		"response_type": "code",
		"client_id":     testClientID,
		"redirect_uri":  testRedirectURI,
		"state":         "device-abc123",
		"scope":         "user-read-playback-state user-modify-playback-state user-read-currently-playing",
	}
	for key, value := range want {
		if got := query.Get(key); got != value {
			t.Errorf("query %s: got %q, want %q", key, got, value)
		}
	}
}

func TestExchangeCode(t *testing.T) {
	ex := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != testClientID || pass != testClientSecret {
			t.Errorf("missing or wrong basic auth: %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type: got %q", got)
		}
		if got := r.PostForm.Get("code"); got != "the-code" {
			t.Errorf("code: got %q", got)
		}
		if got := r.PostForm.Get("redirect_uri"); got != testRedirectURI {
			t.Errorf("redirect_uri: got %q", got)
		}

		writeTokenResponse(w, map[string]any{
			"access_token":  "initial-access",
			"refresh_token": "initial-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	grant, err := ex.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if grant.AccessToken != "initial-access" {
		t.Errorf("access token: got %q", grant.AccessToken)
	}
	if grant.RefreshToken != "initial-refresh" {
		t.Errorf("refresh token: got %q", grant.RefreshToken)
	}
	if grant.ExpiresIn != 3600 {
		t.Errorf("expires_in: got %d", grant.ExpiresIn)
	}
}

func TestExchangeCodeUpstreamError(t *testing.T) {
	ex := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid authorization code",
		})
	})

	_, err := ex.ExchangeCode(context.Background(), "expired-code")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("want *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Code != "invalid_grant" {
		t.Errorf("code: got %q", upstreamErr.Code)
	}
	if upstreamErr.Description != "Invalid authorization code" {
		t.Errorf("description: got %q", upstreamErr.Description)
	}
}

func TestExchangeRefreshToken(t *testing.T) {
	tests := []struct {
		name             string
		response         map[string]any
		wantRefreshToken string
	}{
		{
			name: "rotation",
			response: map[string]any{
				"access_token":  "new-access",
				"refresh_token": "rotated-refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			},
			wantRefreshToken: "rotated-refresh",
		},
		{
			// Spotify may omit refresh_token; the presented one stays valid.
			name: "no rotation",
			response: map[string]any{
				"access_token": "new-access",
				"token_type":   "Bearer",
				"expires_in":   3600,
			},
			wantRefreshToken: "old-refresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatal(err)
				}
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("grant_type: got %q", got)
				}
				if got := r.PostForm.Get("refresh_token"); got != "old-refresh" {
					t.Errorf("refresh_token: got %q", got)
				}
				writeTokenResponse(w, tt.response)
			})

			grant, err := ex.ExchangeRefreshToken(context.Background(), "old-refresh")
			if err != nil {
				t.Fatalf("ExchangeRefreshToken: %v", err)
			}
			if grant.AccessToken != "new-access" {
				t.Errorf("access token: got %q", grant.AccessToken)
			}
			if grant.RefreshToken != tt.wantRefreshToken {
				t.Errorf("refresh token: got %q, want %q", grant.RefreshToken, tt.wantRefreshToken)
			}
		})
	}
}

func TestExchangeRefreshTokenRejected(t *testing.T) {
	ex := newTestExchanger(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Refresh token revoked",
		})
	})

	_, err := ex.ExchangeRefreshToken(context.Background(), "revoked-refresh")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("want *UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Description != "Refresh token revoked" {
		t.Errorf("description: got %q", upstreamErr.Description)
	}
}

func TestExchangeTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := oauth2.Endpoint{
		AuthURL:   server.URL + "/authorize",
		TokenURL:  server.URL + "/api/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	server.Close() // connection refused from here on

	ex := NewExchanger(testClientID, testClientSecret, testRedirectURI, endpoint)

	_, err := ex.ExchangeCode(context.Background(), "any")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("want *TransportError, got %T: %v", err, err)
	}
}
