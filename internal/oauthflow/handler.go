// Package oauthflow implements the Instagram OAuth callback: it exchanges
// the authorization code for a short-lived token, upgrades it to a
// long-lived one, persists the linked identity, and hands the token back
// to the front end across a redirect.
package oauthflow

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/config"
	"github.com/fpang/ig-link-hub/internal/instagram"
	"github.com/fpang/ig-link-hub/internal/metrics"
	"github.com/fpang/ig-link-hub/internal/store"
)

// Handler serves GET /oauth/callback.
type Handler struct {
	cfg   *config.Config
	store store.Store
	now   func() int64
}

// NewHandler creates the callback handler. cfg must have passed
// Require("appId", "appSecret", "redirectUri", "frontendUrl").
func NewHandler(cfg *config.Config, st store.Store) *Handler {
	return &Handler{cfg: cfg, store: st, now: func() int64 { return time.Now().Unix() }}
}

// ServeHTTP processes the Instagram OAuth redirect.
// Meta redirects the user's browser here with ?code=AUTH_CODE (success)
// or ?error=ERROR&error_reason=REASON&error_description=DESC (denied).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondHTML(w, http.StatusMethodNotAllowed, "Error", "Method not allowed.")
		return
	}

	// User denied access: render a page, nothing to exchange.
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		reason := r.URL.Query().Get("error_reason")
		desc := r.URL.Query().Get("error_description")
		log.Warn().Str("error", errParam).Str("reason", reason).Str("description", desc).
			Msg("OAuth authorization denied by user")
		respondHTML(w, http.StatusOK, "Authorization Denied",
			fmt.Sprintf("Instagram authorization was denied: %s.", reason))
		return
	}

	// Missing code short-circuits before any upstream call.
	code := r.URL.Query().Get("code")
	if code == "" {
		log.Error().Msg("OAuth callback received without code or error parameter")
		respondHTML(w, http.StatusBadRequest, "Error", "Missing authorization code.")
		return
	}

	ctx := r.Context()
	start := time.Now()

	shortResult, err := instagram.ExchangeCode(ctx, h.cfg.OAuthBaseURL, code,
		h.cfg.AppID, h.cfg.AppSecret, h.cfg.RedirectURI)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange authorization code")
		respondHTML(w, http.StatusBadGateway, "Token Exchange Failed",
			"Failed to exchange the authorization code for an access token. Please try again.")
		return
	}

	longResult, err := instagram.ExchangeLongLivedToken(ctx, h.cfg.GraphBaseURL,
		shortResult.AccessToken, h.cfg.AppSecret)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange for long-lived token")
		respondHTML(w, http.StatusBadGateway, "Token Exchange Failed",
			"Failed to exchange for a long-lived token. Please try again.")
		return
	}

	// Username is cosmetic; a profile fetch failure must not lose the link.
	username := ""
	client := instagram.NewClient(longResult.AccessToken, shortResult.UserID, h.cfg.GraphBaseURL)
	if profile, err := client.Profile(ctx); err != nil {
		log.Warn().Err(err).Str("userId", shortResult.UserID).
			Msg("Profile fetch failed, storing identity without username")
	} else {
		username = profile.Username
	}

	identity := &store.Identity{
		ExternalID:     shortResult.UserID,
		Username:       username,
		AccessToken:    longResult.AccessToken,
		TokenExpiresAt: h.now() + longResult.ExpiresIn,
		UpdatedAt:      h.now(),
	}
	if err := h.store.UpsertIdentity(ctx, identity); err != nil {
		log.Error().Err(err).Str("userId", shortResult.UserID).
			Msg("Failed to persist identity")
		respondHTML(w, http.StatusInternalServerError, "Storage Failed",
			"Your account was connected but could not be saved. Please try again.")
		return
	}

	log.Info().Str("userId", shortResult.UserID).Str("username", username).
		Dur("elapsed", time.Since(start)).
		Msg("Instagram account linked")
	metrics.New(metrics.Namespace).Dimension("Endpoint", "/oauth/callback").
		Count("AccountLinked").
		Metric("OAuthExchangeDuration", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Flush()

	http.Redirect(w, r, frontendRedirect(h.cfg.FrontendURL, longResult.AccessToken), http.StatusFound)
}

// frontendRedirect appends the access token to the front end URL's query
// string, preserving any query parameters already configured on it.
func frontendRedirect(frontendURL, token string) string {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return frontendURL + "?access_token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// respondHTML writes a minimal HTML page with the given title and message.
func respondHTML(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>%s</title>
  <style>
    body { font-family: system-ui, -apple-system, sans-serif; max-width: 600px; margin: 80px auto; padding: 0 20px; text-align: center; color: #1a1a1a; }
    h1 { font-size: 1.5rem; margin-bottom: 1rem; }
    p { font-size: 1rem; line-height: 1.6; color: #444; }
  </style>
</head>
<body>
  <h1>%s</h1>
  <p>%s</p>
</body>
</html>`, title, title, message)
}
