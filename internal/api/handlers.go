// Package api implements the authenticated front-end API: post tracking,
// user data, and short link management. The same mux backs the API Lambda
// and the local dev server.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/auth"
	"github.com/fpang/ig-link-hub/internal/instagram"
	"github.com/fpang/ig-link-hub/internal/shortlink"
	"github.com/fpang/ig-link-hub/internal/store"
)

// profileFetcher resolves the caller behind a bearer token.
// Production uses the Graph API; tests inject a fake.
type profileFetcher func(ctx context.Context, accessToken string) (*instagram.Profile, error)

// mediaFetcher lists the caller's recent media.
type mediaFetcher func(ctx context.Context, accessToken string) ([]instagram.MediaItem, error)

// Server holds the dependencies shared by every /api handler.
type Server struct {
	store   store.Store
	links   *shortlink.Service
	profile profileFetcher
	media   mediaFetcher
	now     func() int64
}

func NewServer(st store.Store, links *shortlink.Service, graphBaseURL string) *Server {
	return &Server{
		store: st,
		links: links,
		profile: func(ctx context.Context, accessToken string) (*instagram.Profile, error) {
			return instagram.NewClient(accessToken, "me", graphBaseURL).Profile(ctx)
		},
		media: func(ctx context.Context, accessToken string) ([]instagram.MediaItem, error) {
			return instagram.NewClient(accessToken, "me", graphBaseURL).RecentMedia(ctx)
		},
		now: func() int64 { return time.Now().Unix() },
	}
}

// NewMux wires the API routes with metrics middleware.
func NewMux(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/save-post", s.handleSavePost)
	mux.HandleFunc("/api/user-data", s.handleUserData)
	mux.HandleFunc("/api/shorten", s.handleShorten)
	mux.HandleFunc("/api/links", s.handleLinks)
	return withMetrics(mux)
}

// handleSavePost marks a piece of media as tracked for comment auto-reply.
//
//	POST /api/save-post {"mediaId": "..."}
//
// The caller's token is stored with the post so the webhook path can reply
// on their behalf later without re-authenticating.
func (s *Server) handleSavePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token, err := auth.BearerToken(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		MediaID string `json:"mediaId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MediaID == "" {
		httpError(w, http.StatusBadRequest, "mediaId is required")
		return
	}

	ctx := r.Context()
	profile, err := s.profile(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("Save post: profile fetch failed")
		httpError(w, http.StatusBadGateway, "Could not verify your Instagram account")
		return
	}

	post := &store.Post{
		MediaID:     req.MediaID,
		OwnerID:     profile.ID,
		AccessToken: token,
		SavedAt:     s.now(),
	}
	if err := s.store.PutPost(ctx, post); err != nil {
		log.Error().Err(err).Str("mediaId", req.MediaID).Msg("Save post: store write failed")
		httpError(w, http.StatusInternalServerError, "Could not save post")
		return
	}

	log.Info().Str("mediaId", req.MediaID).Str("ownerId", profile.ID).Msg("Post tracked")
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleUserData returns the caller's profile together with recent media,
// the data the front end needs to render the post picker.
//
//	GET /api/user-data
func (s *Server) handleUserData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token, err := auth.BearerToken(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx := r.Context()
	profile, err := s.profile(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("User data: profile fetch failed")
		httpError(w, http.StatusBadRequest, "Could not fetch your Instagram profile")
		return
	}

	media, err := s.media(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("userId", profile.ID).Msg("User data: media fetch failed")
		httpError(w, http.StatusInternalServerError, "Could not fetch your recent media")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":  profile,
		"media": media,
	})
}

// handleShorten creates a short link.
//
//	POST /api/shorten {"url": "https://..."}
//
// A bearer token is optional; when present the link is attributed to the
// caller so /api/links can list it.
func (s *Server) handleShorten(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		httpError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx := r.Context()
	ownerID := ""
	if token, err := auth.BearerToken(r); err == nil {
		if profile, err := s.profile(ctx, token); err != nil {
			log.Warn().Err(err).Msg("Shorten: profile fetch failed, creating anonymous link")
		} else {
			ownerID = profile.ID
		}
	}

	link, err := s.links.Shorten(ctx, ownerID, req.URL)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, link)
}

// handleLinks lists the caller's short links with click counts.
//
//	GET /api/links
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	token, err := auth.BearerToken(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx := r.Context()
	profile, err := s.profile(ctx, token)
	if err != nil {
		log.Warn().Err(err).Msg("Links: profile fetch failed")
		httpError(w, http.StatusUnauthorized, "Could not verify your Instagram account")
		return
	}

	links, err := s.links.List(ctx, profile.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	if links == nil {
		links = []*store.Link{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"links": links})
}
