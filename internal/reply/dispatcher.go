// Package reply sends automated private replies to comments on tracked
// media. The webhook handler hands over (mediaID, commentID) pairs; the
// dispatcher decides whether the media is tracked and, if so, replies on
// behalf of the media owner using the access token captured when the post
// was saved.
package reply

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/instagram"
	"github.com/fpang/ig-link-hub/internal/metrics"
	"github.com/fpang/ig-link-hub/internal/store"
)

// Result describes the outcome of one dispatch attempt.
type Result int

const (
	// Sent means the private reply was delivered to the commenter.
	Sent Result = iota
	// Skipped means the comment was on media nobody tracks; no reply owed.
	Skipped
	// Failed means the media was tracked but the reply could not be sent.
	Failed
)

func (r Result) String() string {
	switch r {
	case Sent:
		return "sent"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Sender delivers a private reply to a comment. *instagram.Client
// satisfies this; tests substitute fakes.
type Sender interface {
	SendPrivateReply(ctx context.Context, commentID, text string) error
}

// SenderFactory builds a Sender for the media owner's credentials.
type SenderFactory func(accessToken, userID string) Sender

// Dispatcher routes comment events into private replies.
type Dispatcher struct {
	store     store.Store
	newSender SenderFactory
	message   string
}

// NewDispatcher creates a dispatcher that replies with message, using
// Instagram clients pointed at graphBaseURL.
func NewDispatcher(st store.Store, graphBaseURL, message string) *Dispatcher {
	return &Dispatcher{
		store: st,
		newSender: func(accessToken, userID string) Sender {
			return instagram.NewClient(accessToken, userID, graphBaseURL)
		},
		message: message,
	}
}

// NewDispatcherWithSender is like NewDispatcher but with an injectable
// sender factory, for tests.
func NewDispatcherWithSender(st store.Store, factory SenderFactory, message string) *Dispatcher {
	return &Dispatcher{store: st, newSender: factory, message: message}
}

// DispatchCommentReply looks up the commented media and, when tracked,
// sends the configured reply to the commenter. Errors are logged here;
// callers only see the coarse Result.
func (d *Dispatcher) DispatchCommentReply(ctx context.Context, mediaID, commentID string) Result {
	rec := metrics.New(metrics.Namespace).Dimension("Component", "ReplyDispatcher")

	post, err := d.store.GetPost(ctx, mediaID)
	if err != nil {
		log.Error().Err(err).Str("mediaId", mediaID).Str("commentId", commentID).
			Msg("Comment reply: post lookup failed")
		rec.Count("ReplyFailed").Flush()
		return Failed
	}
	if post == nil {
		log.Debug().Str("mediaId", mediaID).Str("commentId", commentID).
			Msg("Comment reply: media not tracked, skipping")
		rec.Count("ReplySkipped").Flush()
		return Skipped
	}

	sender := d.newSender(post.AccessToken, post.OwnerID)
	if err := sender.SendPrivateReply(ctx, commentID, d.message); err != nil {
		log.Warn().Err(err).Str("mediaId", mediaID).Str("commentId", commentID).
			Str("ownerId", post.OwnerID).
			Msg("Comment reply: send failed")
		rec.Count("ReplyFailed").Flush()
		return Failed
	}

	log.Info().Str("mediaId", mediaID).Str("commentId", commentID).
		Str("ownerId", post.OwnerID).
		Msg("Comment reply sent")
	rec.Count("ReplySent").Flush()
	return Sent
}
