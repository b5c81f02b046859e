package shortlink

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Handler serves GET /{code} redirects. Error pages carry generic
// messages only; everything specific stays in the logs.
type Handler struct {
	svc *Service
}

// NewHandler wraps a Service as an http.Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := strings.Trim(r.URL.Path, "/")
	if code == "" || strings.Contains(code, "/") {
		errorPage(w, http.StatusNotFound, "URL not found")
		return
	}

	res, err := h.svc.Resolve(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("Short link resolution failed")
		errorPage(w, http.StatusInternalServerError, "Something went wrong")
		return
	}

	switch res.Status {
	case NotFound:
		errorPage(w, http.StatusNotFound, "URL not found")
	case InvalidDestination:
		errorPage(w, http.StatusBadRequest, "Invalid destination URL")
	default:
		http.Redirect(w, r, res.Destination, http.StatusFound)
	}
}

// errorPage renders a minimal HTML error page. The message must already be
// client-safe.
func errorPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1></body></html>", message, message)
}
