package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/garminwrap/garminwrap/internal/errors"
)

// errorResponder writes error envelopes; tests may swap it.
var errorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder replaces the error writer. Nil restores the default.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	errorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}

// writeRawJSON relays an upstream payload byte-for-byte.
func writeRawJSON(w http.ResponseWriter, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
