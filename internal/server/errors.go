package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/qubiq-ai/edu-gateway/internal/domain"
)

// errorBody is the JSON error envelope returned to callers.
type errorBody struct {
	Error string `json:"error"`
}

// writeError renders a canonical error. Client-facing types keep their precise
// message; server-side faults (integrity, upstream, normalization) are
// rendered generically while the full detail goes to the server log only.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrServer("internal error").WithCause(err)
	}

	AddError(r.Context(), apiErr)

	message := apiErr.Message
	if !apiErr.ClientFacing() {
		attrs := []slog.Attr{
			slog.String("type", string(apiErr.Type)),
			slog.String("code", string(apiErr.Code)),
			slog.String("message", apiErr.Message),
		}
		if apiErr.Detail != "" {
			attrs = append(attrs, slog.String("detail", apiErr.Detail))
		}
		if apiErr.Cause != nil {
			attrs = append(attrs, slog.String("cause", apiErr.Cause.Error()))
		}
		logger.LogAttrs(r.Context(), slog.LevelError, "request failed", attrs...)

		switch apiErr.Type {
		case domain.ErrorTypeUpstream, domain.ErrorTypeNormalization:
			message = "generation failed"
		default:
			message = "internal error"
		}
	}

	writeJSON(w, apiErr.HTTPStatusCode(), errorBody{Error: message})
}

// writeJSON renders a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
