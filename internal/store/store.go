// Package store provides persistent storage for linked Instagram
// identities, tracked posts, and short links. All durable state lives
// here; request handlers are otherwise stateless.
//
// The package uses a single-table DynamoDB design where the partition key
// encodes the collection: USER#{externalId}, POST#{mediaId}, and
// LINK#{code}, each with sort key META. A global secondary index on
// ownerId serves the "links by owner" listing.
package store

import "context"

// Store defines the persistence interface for all three collections.
// Each method is safe for concurrent use. All Get methods return
// (nil, nil) when the requested record does not exist.
type Store interface {
	// --- Identities ---

	// UpsertIdentity creates or updates an identity record with merge
	// semantics: only non-empty fields of identity overwrite stored
	// attributes, everything else is preserved.
	UpsertIdentity(ctx context.Context, identity *Identity) error

	// GetIdentity retrieves an identity by external ID. Returns nil, nil if not found.
	GetIdentity(ctx context.Context, externalID string) (*Identity, error)

	// --- Tracked posts ---

	// PutPost creates or replaces a tracked post record.
	PutPost(ctx context.Context, post *Post) error

	// GetPost retrieves a tracked post by media ID. Returns nil, nil if not found.
	GetPost(ctx context.Context, mediaID string) (*Post, error)

	// --- Short links ---

	// PutLink creates or replaces a short link record.
	PutLink(ctx context.Context, link *Link) error

	// GetLink retrieves a short link by code. Returns nil, nil if not found.
	GetLink(ctx context.Context, code string) (*Link, error)

	// LinksByOwner retrieves every short link created by the given owner.
	LinksByOwner(ctx context.Context, ownerID string) ([]*Link, error)

	// RecordClick atomically increments the click counter for a link and
	// stamps lastAccessed. Fails if the link does not exist.
	RecordClick(ctx context.Context, code string) error
}

// --- Domain types ---
//
// Each type maps to a DynamoDB record. The key field is derived from the
// PK on read and excluded from DynamoDB attributes on write (via
// dynamodbav:"-"). All other fields are stored as attributes.

// Identity represents a linked Instagram account (PK = USER#{externalId}).
// Refreshed on every successful OAuth exchange, never deleted.
type Identity struct {
	ExternalID     string `json:"externalId" dynamodbav:"-"`
	Username       string `json:"username,omitempty" dynamodbav:"username,omitempty"`
	AccessToken    string `json:"-" dynamodbav:"accessToken,omitempty"`
	TokenExpiresAt int64  `json:"tokenExpiresAt,omitempty" dynamodbav:"tokenExpiresAt,omitempty"`
	UpdatedAt      int64  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Post represents a tracked piece of media (PK = POST#{mediaId}).
// Created by save-post; read-only from the webhook path.
type Post struct {
	MediaID     string `json:"mediaId" dynamodbav:"-"`
	OwnerID     string `json:"ownerId" dynamodbav:"ownerId"`
	AccessToken string `json:"-" dynamodbav:"accessToken"`
	SavedAt     int64  `json:"savedAt" dynamodbav:"savedAt"`
}

// Link represents a short link (PK = LINK#{code}).
// Clicks only ever increases; LastAccessed is zero until the first resolve.
type Link struct {
	Code           string `json:"code" dynamodbav:"-"`
	DestinationURL string `json:"destinationUrl" dynamodbav:"destinationUrl"`
	OwnerID        string `json:"ownerId,omitempty" dynamodbav:"ownerId,omitempty"`
	CreatedAt      int64  `json:"createdAt" dynamodbav:"createdAt"`
	Clicks         int64  `json:"clicks" dynamodbav:"clicks"`
	LastAccessed   int64  `json:"lastAccessed,omitempty" dynamodbav:"lastAccessed,omitempty"`
}
