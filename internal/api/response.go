package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/styloglo/styloglo/internal/pipeline"
	"github.com/styloglo/styloglo/internal/session"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// isStateConflict reports whether err is one of the session or pipeline
// rejection sentinels: wrong mode, unacknowledged discard, busy pipeline.
func isStateConflict(err error) bool {
	return errors.Is(err, session.ErrDiscardRequired) ||
		errors.Is(err, session.ErrInvalidTransition) ||
		errors.Is(err, session.ErrNoPipeline) ||
		errors.Is(err, pipeline.ErrEditInFlight)
}

// respondSessionError maps session and pipeline sentinels to HTTP statuses.
// State conflicts are all 409s; anything else is a plain 500.
func respondSessionError(w http.ResponseWriter, err error) {
	if isStateConflict(err) {
		httpError(w, http.StatusConflict, err.Error())
		return
	}
	httpError(w, http.StatusInternalServerError, err.Error())
}
