// Package webhook provides an HTTP handler for Meta/Instagram webhook
// verification and event notification processing.
//
// Verification (GET):
//
//	Meta sends hub.mode, hub.verify_token, and hub.challenge as query
//	parameters. The handler validates the verify token and responds with
//	the challenge value.
//
// Event Notification (POST):
//
//	Meta sends a JSON payload signed with X-Hub-Signature-256 (HMAC-SHA256
//	using the App Secret). The handler validates the signature, classifies
//	each entry into events, and routes comment events to the reply
//	dispatcher.
//
// Reference: https://developers.facebook.com/docs/instagram-platform/webhooks
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/metrics"
	"github.com/fpang/ig-link-hub/internal/reply"
)

// maxBodySize is the maximum allowed request body size (1 MB).
// Meta batches up to 1000 updates per notification, which should stay well
// under this limit.
const maxBodySize = 1 << 20 // 1 MB

// CommentDispatcher handles comment events routed out of webhook deliveries.
type CommentDispatcher interface {
	DispatchCommentReply(ctx context.Context, mediaID, commentID string) reply.Result
}

// Handler handles Meta webhook verification and event notifications.
type Handler struct {
	verifyToken string
	appSecret   string
	dispatcher  CommentDispatcher
}

// NewHandler creates a webhook handler.
//
// verifyToken is a user-chosen string that must match the Verify Token
// configured in the Meta App Dashboard.
//
// appSecret is the Instagram App Secret from the Meta Developer Dashboard,
// used to validate X-Hub-Signature-256 on POST event notifications.
//
// dispatcher receives comment events; it may be nil, in which case comment
// events are classified and logged but not acted on.
func NewHandler(verifyToken, appSecret string, dispatcher CommentDispatcher) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		dispatcher:  dispatcher,
	}
}

// ServeHTTP dispatches to verification (GET) or event handling (POST).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerification(w, r)
	case http.MethodPost:
		h.handleEvent(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerification processes the Meta webhook verification handshake.
//
// Meta sends:
//
//	GET /webhook?hub.mode=subscribe&hub.verify_token=<token>&hub.challenge=<challenge>
//
// The handler must respond with the hub.challenge value if the verify token
// matches, or 403 if it does not.
func (h *Handler) handleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "" || challenge == "" {
		log.Warn().
			Str("mode", mode).
			Str("challenge", challenge).
			Msg("Webhook verification missing required parameters")
		http.Error(w, "missing required parameters", http.StatusBadRequest)
		return
	}

	if mode != "subscribe" {
		log.Warn().Str("mode", mode).Msg("Webhook verification unexpected mode")
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return
	}

	if token != h.verifyToken {
		log.Warn().Msg("Webhook verification failed: invalid verify token")
		http.Error(w, "invalid verify token", http.StatusForbidden)
		return
	}

	log.Info().Msg("Webhook verification successful")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// handleEvent processes incoming Meta webhook event notifications.
//
// Meta sends a POST with:
//   - JSON body containing batched event entries
//   - X-Hub-Signature-256 header: "sha256=<hex-encoded HMAC-SHA256>"
//
// Signature failures are rejected with 403 and nothing downstream runs.
// Once the signature checks out, processing failures for individual
// entries never change the response: Meta gets 200 EVENT_RECEIVED so it
// does not retry a batch we have already partially handled.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	// Read body with size limit.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Webhook event: failed to read body")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(body) == 0 {
		log.Warn().Msg("Webhook event: empty body")
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	// Validate X-Hub-Signature-256 header.
	signature := r.Header.Get("X-Hub-Signature-256")
	if signature == "" {
		log.Warn().Msg("Webhook event: missing X-Hub-Signature-256 header")
		http.Error(w, "missing signature", http.StatusForbidden)
		return
	}

	if !h.verifySignature(body, signature) {
		log.Warn().Msg("Webhook event: invalid signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	deliveryID := uuid.NewString()

	p, err := parsePayload(body)
	if err != nil {
		log.Warn().Err(err).Str("deliveryId", deliveryID).Int("bodySize", len(body)).
			Msg("Webhook event: unparseable payload")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	if p.Object != "instagram" {
		log.Warn().Str("deliveryId", deliveryID).Str("object", p.Object).
			Msg("Webhook event: unexpected object type, ignoring")
		acknowledge(w)
		return
	}

	h.processEntries(r.Context(), p, deliveryID)

	acknowledge(w)
}

// processEntries classifies and routes every entry in a verified delivery.
// A failure inside one entry never aborts the others.
func (h *Handler) processEntries(ctx context.Context, p *payload, deliveryID string) {
	rec := metrics.New(metrics.Namespace).
		Dimension("Endpoint", "/webhook").
		Property("deliveryId", deliveryID)
	kindCounts := map[string]int{}

	for _, e := range p.Entry {
		for _, ev := range classifyEntry(e, deliveryID) {
			kindCounts[ev.EventKind()]++
			h.routeEvent(ctx, ev, deliveryID)
		}
	}

	for kind, n := range kindCounts {
		metrics.New(metrics.Namespace).
			Dimension("EventKind", kind).
			Metric("WebhookEventCount", float64(n), metrics.UnitCount).
			Flush()
	}
	rec.Count("WebhookDeliveryCount").Flush()
}

func (h *Handler) routeEvent(ctx context.Context, ev Event, deliveryID string) {
	switch e := ev.(type) {
	case Comment:
		log.Info().Str("deliveryId", deliveryID).
			Str("mediaId", e.MediaID).
			Str("commentId", e.CommentID).
			Str("commenterId", e.CommenterID).
			Msg("Comment event received")
		if h.dispatcher == nil {
			return
		}
		result := h.dispatcher.DispatchCommentReply(ctx, e.MediaID, e.CommentID)
		log.Info().Str("deliveryId", deliveryID).
			Str("commentId", e.CommentID).
			Str("result", result.String()).
			Msg("Comment reply dispatch finished")
	case Message:
		log.Info().Str("deliveryId", deliveryID).
			Str("senderId", e.SenderID).
			Str("mid", e.MID).
			Int("attachments", e.Attachments).
			Msg("Message event received")
	case Reaction:
		log.Info().Str("deliveryId", deliveryID).
			Str("senderId", e.SenderID).
			Str("action", e.Action).
			Msg("Reaction event received")
	case Postback:
		log.Info().Str("deliveryId", deliveryID).
			Str("senderId", e.SenderID).
			Str("payload", e.Payload).
			Msg("Postback event received")
	}
}

// acknowledge writes the body Meta expects back for a processed delivery.
func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("EVENT_RECEIVED"))
}

// verifySignature validates the X-Hub-Signature-256 header value against
// the HMAC-SHA256 of the body using the App Secret.
//
// The header format is: "sha256=<hex-encoded hash>"
//
// Uses hmac.Equal for constant-time comparison to prevent timing attacks.
func (h *Handler) verifySignature(body []byte, header string) bool {
	// Without a secret no signature can be trusted.
	if h.appSecret == "" {
		return false
	}

	// Header must start with "sha256="
	const prefix = "sha256="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}

	receivedHex := header[len(prefix):]
	receivedBytes, err := hex.DecodeString(receivedHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	expectedBytes := mac.Sum(nil)

	return hmac.Equal(receivedBytes, expectedBytes)
}
