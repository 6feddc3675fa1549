package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the device-facing JSON error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes a JSON error response with the given status code.
// Similar to http.Error but returns structured JSON instead of plain text.
func writeJSONError(ctx context.Context, w http.ResponseWriter, errorCode, message string, status int) {
	writeJSON(ctx, w, ErrorResponse{Error: errorCode, Message: message}, status)
}
