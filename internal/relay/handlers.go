package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hllvc/tokenrelay/internal/broker"
	"github.com/hllvc/tokenrelay/internal/credstore"
)

// TokenResponse is the device-facing success payload on /token and /refresh.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// handleLogin starts the consent flow: redirects the human browser to the
// authorization server, carrying the device identifier as OAuth state.
func (r *Relay) handleLogin(w http.ResponseWriter, req *http.Request) {
	deviceID := req.URL.Query().Get("deviceId")

	authURL, err := r.broker.AuthorizeURL(deviceID)
	if err != nil {
		http.Error(w, "Missing deviceId parameter. Must use a persistent unique ID.", http.StatusBadRequest)
		return
	}

	http.Redirect(w, req, authURL, http.StatusFound)
}

// handleCallback receives the authorization server redirect and performs the
// code exchange. By contract the state parameter is the device identifier;
// this provides device linkage but no CSRF protection.
func (r *Relay) handleCallback(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	code := query.Get("code")
	deviceID := query.Get("state")
	authErr := query.Get("error")

	if authErr != "" || deviceID == "" {
		if authErr == "" {
			authErr = "Missing device ID."
		}
		http.Error(w, fmt.Sprintf("Authorization failed. Error: %s", authErr), http.StatusBadRequest)
		return
	}

	if err := r.broker.Grant(req.Context(), deviceID, code); err != nil {
		http.Error(w, fmt.Sprintf("Token exchange failed on the server: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Success! Device ID: %s. Tokens saved securely. You can now close this window.\n", deviceID)
}

// handleToken serves the device poll: returns the stored access token without
// touching the authorization server.
func (r *Relay) handleToken(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	w.Header().Set("Access-Control-Allow-Origin", "*")

	query := req.URL.Query()
	deviceID := query.Get("deviceId")
	authKey := query.Get("authKey")

	creds, err := r.broker.Retrieve(ctx, deviceID, authKey)
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrUnauthorized):
			writeJSONError(ctx, w, "Unauthorized", "Authentication failed.", http.StatusUnauthorized)
		case errors.Is(err, credstore.ErrNotFound):
			writeJSONError(ctx, w, "Not Found", "Tokens not yet available.", http.StatusNotFound)
		default:
			slog.ErrorContext(ctx, "token retrieval failed", "device_id", deviceID, "error", err)
			writeJSONError(ctx, w, "Server Error", "Database lookup failed.", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(ctx, w, TokenResponse{
		AccessToken: creds.AccessToken,
		ExpiresIn:   creds.ExpiresIn,
	}, http.StatusOK)
}

// handleRefresh serves the explicit refresh request: exchanges the stored
// refresh token and returns the rotated credentials.
func (r *Relay) handleRefresh(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	w.Header().Set("Access-Control-Allow-Origin", "*")

	query := req.URL.Query()
	deviceID := query.Get("deviceId")
	authKey := query.Get("authKey")

	creds, err := r.broker.Refresh(ctx, deviceID, authKey)
	if err != nil {
		var rejected *broker.RefreshRejectedError
		switch {
		case errors.Is(err, broker.ErrUnauthorized):
			writeJSONError(ctx, w, "Unauthorized", "Authentication failed.", http.StatusUnauthorized)
		case errors.Is(err, credstore.ErrNotFound):
			writeJSONError(ctx, w, "Not Found", "No record found to refresh.", http.StatusNotFound)
		case errors.Is(err, broker.ErrRefreshTokenMissing):
			writeJSONError(ctx, w, "Not Found", "Refresh token missing from storage.", http.StatusNotFound)
		case errors.As(err, &rejected):
			writeJSONError(ctx, w, "Refresh Failed", "Refresh token invalid. Re-authorization required.", http.StatusBadRequest)
		default:
			slog.ErrorContext(ctx, "refresh failed", "device_id", deviceID, "error", err)
			writeJSONError(ctx, w, "Server Error", "Refresh failed due to a server or network issue.", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(ctx, w, TokenResponse{
		AccessToken: creds.AccessToken,
		ExpiresIn:   creds.ExpiresIn,
	}, http.StatusOK)
}

// handleHealthz reports liveness.
func (r *Relay) handleHealthz(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}
