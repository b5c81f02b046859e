package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/errutil"
)

// --- JSON Helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// httpError sends a JSON error response. The clientMsg is returned to the caller.
// Optional internalDetails are logged server-side but never sent to the client.
// This prevents leaking sensitive info (tokens, table names, stack traces) while
// keeping client messages useful for debugging.
func httpError(w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("HTTP error with internal details")
	}
	respondJSON(w, status, map[string]string{"error": clientMsg})
}

// respondError maps a classified error onto its HTTP status and
// client-safe message. Unclassified errors become a generic 500.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if kind, ok := errutil.KindOf(err); ok {
		status = kind.HTTPStatus()
	}
	httpError(w, status, errutil.ClientMessage(err), err.Error())
}
