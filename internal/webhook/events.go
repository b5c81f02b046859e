package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Event is one normalized notification extracted from a webhook delivery.
// Exactly one concrete type backs each value; downstream code switches on
// the type rather than re-checking field presence.
type Event interface {
	// EventKind returns the taxonomy name: comment, message, reaction, postback.
	EventKind() string
}

// Comment is a comment on a piece of media.
type Comment struct {
	MediaID     string
	CommenterID string
	CommentID   string
	Text        string
}

func (Comment) EventKind() string { return "comment" }

// Message is an inbound direct message.
type Message struct {
	SenderID    string
	RecipientID string
	MID         string
	Text        string
	Attachments int
	Timestamp   int64
}

func (Message) EventKind() string { return "message" }

// Reaction is a reaction to a previously sent message.
type Reaction struct {
	SenderID    string
	RecipientID string
	MID         string
	Action      string
}

func (Reaction) EventKind() string { return "reaction" }

// Postback is a button or ice-breaker tap.
type Postback struct {
	SenderID    string
	RecipientID string
	MID         string
	Title       string
	Payload     string
}

func (Postback) EventKind() string { return "postback" }

// --- Wire types ---
//
// Meta's delivery format: a top-level object tag, then entries each of
// which may carry a "messaging" list (DM-side events) and/or a "changes"
// list (comment-side events). Every sub-field is optional on the wire.

type payload struct {
	Object string  `json:"object"`
	Entry  []entry `json:"entry"`
}

type entry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Messaging []messagingItem `json:"messaging,omitempty"`
	Changes   []changeItem    `json:"changes,omitempty"`
}

type idRef struct {
	ID string `json:"id"`
}

type messagingItem struct {
	Sender    *idRef        `json:"sender,omitempty"`
	Recipient *idRef        `json:"recipient,omitempty"`
	Timestamp int64         `json:"timestamp,omitempty"`
	Message   *messagePart  `json:"message,omitempty"`
	Reaction  *reactionPart `json:"reaction,omitempty"`
	Postback  *postbackPart `json:"postback,omitempty"`
}

type messagePart struct {
	MID         string            `json:"mid"`
	Text        string            `json:"text,omitempty"`
	Attachments []json.RawMessage `json:"attachments,omitempty"`
}

type reactionPart struct {
	MID    string `json:"mid"`
	Action string `json:"action,omitempty"`
}

type postbackPart struct {
	MID     string `json:"mid"`
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type changeItem struct {
	Field string      `json:"field"`
	Value changeValue `json:"value"`
}

type changeValue struct {
	ID    string `json:"id"` // comment id
	Text  string `json:"text,omitempty"`
	From  *idRef `json:"from,omitempty"`
	Media *idRef `json:"media,omitempty"`
}

// parsePayload decodes a raw delivery body. The signature has already been
// verified against these exact bytes.
func parsePayload(body []byte) (*payload, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	return &p, nil
}

// classifyEntry extracts every recognizable event from one entry.
// Malformed or unknown items are logged and skipped; they never abort
// their siblings.
func classifyEntry(e entry, deliveryID string) []Event {
	var events []Event

	for i, m := range e.Messaging {
		if m.Sender == nil || m.Sender.ID == "" {
			log.Warn().Str("deliveryId", deliveryID).Str("entryId", e.ID).Int("item", i).
				Msg("Messaging item missing sender id, skipping")
			continue
		}
		recipientID := ""
		if m.Recipient != nil {
			recipientID = m.Recipient.ID
		}

		// Classification precedence: message, then reaction, then postback.
		switch {
		case m.Message != nil:
			events = append(events, Message{
				SenderID:    m.Sender.ID,
				RecipientID: recipientID,
				MID:         m.Message.MID,
				Text:        m.Message.Text,
				Attachments: len(m.Message.Attachments),
				Timestamp:   m.Timestamp,
			})
		case m.Reaction != nil:
			events = append(events, Reaction{
				SenderID:    m.Sender.ID,
				RecipientID: recipientID,
				MID:         m.Reaction.MID,
				Action:      m.Reaction.Action,
			})
		case m.Postback != nil:
			events = append(events, Postback{
				SenderID:    m.Sender.ID,
				RecipientID: recipientID,
				MID:         m.Postback.MID,
				Title:       m.Postback.Title,
				Payload:     m.Postback.Payload,
			})
		default:
			log.Debug().Str("deliveryId", deliveryID).Str("entryId", e.ID).Int("item", i).
				Msg("Unrecognized messaging item, skipping")
		}
	}

	for i, c := range e.Changes {
		if c.Field != "comments" {
			log.Debug().Str("deliveryId", deliveryID).Str("entryId", e.ID).Str("field", c.Field).
				Msg("Unhandled change field, skipping")
			continue
		}
		if c.Value.Media == nil || c.Value.Media.ID == "" {
			log.Warn().Str("deliveryId", deliveryID).Str("entryId", e.ID).Int("item", i).
				Msg("Comment change missing media id, skipping")
			continue
		}
		commenterID := ""
		if c.Value.From != nil {
			commenterID = c.Value.From.ID
		}
		events = append(events, Comment{
			MediaID:     c.Value.Media.ID,
			CommenterID: commenterID,
			CommentID:   c.Value.ID,
			Text:        c.Value.Text,
		})
	}

	return events
}
