package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/rs/zerolog"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"

	// maxBodyBytes bounds every JSON request body.
	maxBodyBytes = 1 << 20
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the JSON error envelope. Downstream bodies are
// attached as details, embedded as JSON when they are JSON.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	typed := apperrors.Classify(err, "error inesperado")
	status := typed.HTTPStatus()

	logger := zerolog.Ctx(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Str("kind", string(typed.Kind)).Int("status", status).Msg("request failed")

	resp := errorResponse{Error: typed.Message}
	if typed.Detail != "" {
		if json.Valid([]byte(typed.Detail)) {
			resp.Details = json.RawMessage(typed.Detail)
		} else {
			resp.Details = typed.Detail
		}
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads the request body into v. An empty or malformed body is a
// validation error.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperrors.Validation("se requiere un cuerpo JSON")
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return apperrors.Validation("se requiere un cuerpo JSON")
	default:
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return apperrors.Validation("tipo inválido para el campo '" + typeErr.Field + "'")
		}
		return apperrors.Validation("cuerpo JSON inválido")
	}
}
