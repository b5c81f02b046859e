// Package shortlink creates and resolves short links. A short code is an
// opaque random identifier mapping to a destination URL; resolving one
// records a click and redirects. Click counts are a metric, not a ledger:
// the increment is best-effort and never blocks the redirect.
package shortlink

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ig-link-hub/internal/errutil"
	"github.com/fpang/ig-link-hub/internal/metrics"
	"github.com/fpang/ig-link-hub/internal/store"
)

// maxCreateAttempts bounds collision retries during code generation.
const maxCreateAttempts = 5

// Service implements shorten and resolve on top of the link store.
type Service struct {
	store      store.Store
	codeLength int
	now        func() int64
}

// NewService creates a short link service with the default code length.
func NewService(st store.Store, now func() int64) *Service {
	return &Service{store: st, codeLength: defaultCodeLength, now: now}
}

// Shorten validates destination, allocates a fresh code, and persists the
// link. ownerID may be empty for anonymous links.
func (s *Service) Shorten(ctx context.Context, ownerID, destination string) (*store.Link, error) {
	if err := validateDestination(destination); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := generateCode(s.codeLength)
		if err != nil {
			return nil, errutil.Wrap(errutil.KindStore, "could not create short link", err)
		}

		existing, err := s.store.GetLink(ctx, code)
		if err != nil {
			return nil, errutil.Wrap(errutil.KindStore, "could not create short link", err)
		}
		if existing != nil {
			log.Warn().Str("code", code).Int("attempt", attempt+1).
				Msg("Short code collision, regenerating")
			continue
		}

		link := &store.Link{
			Code:           code,
			DestinationURL: destination,
			OwnerID:        ownerID,
			CreatedAt:      s.now(),
		}
		if err := s.store.PutLink(ctx, link); err != nil {
			return nil, errutil.Wrap(errutil.KindStore, "could not create short link", err)
		}

		log.Info().Str("code", code).Str("ownerId", ownerID).Msg("Short link created")
		metrics.New(metrics.Namespace).Dimension("Component", "Shortlink").
			Count("LinkCreated").Flush()
		return link, nil
	}

	return nil, errutil.New(errutil.KindStore, "could not create short link")
}

// List returns every link owned by ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]*store.Link, error) {
	links, err := s.store.LinksByOwner(ctx, ownerID)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindStore, "could not list links", err)
	}
	return links, nil
}

// ResolveStatus is the outcome of a resolution attempt.
type ResolveStatus int

const (
	// Redirect means the code resolved and the caller should redirect.
	Redirect ResolveStatus = iota
	// NotFound means no link exists for the code.
	NotFound
	// InvalidDestination means the stored destination no longer passes
	// validation and must not be redirected to.
	InvalidDestination
)

// Resolution is the result of resolving a short code.
type Resolution struct {
	Status      ResolveStatus
	Destination string
}

// Resolve looks up code and, when it maps to a valid destination, records
// the click and returns the redirect target. The destination is
// re-validated at resolve time: a record that predates stricter rules, or
// was written by another path, must not become an open redirect.
//
// A failed click increment is logged and swallowed; the visitor still gets
// their redirect.
func (s *Service) Resolve(ctx context.Context, code string) (Resolution, error) {
	link, err := s.store.GetLink(ctx, code)
	if err != nil {
		return Resolution{}, errutil.Wrap(errutil.KindStore, "could not resolve link", err)
	}
	if link == nil {
		log.Debug().Str("code", code).Msg("Short code not found")
		return Resolution{Status: NotFound}, nil
	}

	if err := validateDestination(link.DestinationURL); err != nil {
		log.Error().Str("code", code).Str("destination", link.DestinationURL).
			Msg("Stored destination fails validation, refusing redirect")
		return Resolution{Status: InvalidDestination}, nil
	}

	if err := s.store.RecordClick(ctx, code); err != nil {
		log.Warn().Err(err).Str("code", code).
			Msg("Click increment failed, redirecting anyway")
	}

	metrics.New(metrics.Namespace).Dimension("Component", "Shortlink").
		Count("LinkResolved").Flush()
	return Resolution{Status: Redirect, Destination: link.DestinationURL}, nil
}

// validateDestination accepts only absolute http/https URLs.
func validateDestination(destination string) error {
	if destination == "" {
		return errutil.New(errutil.KindBadRequest, "Invalid destination URL")
	}
	u, err := url.Parse(destination)
	if err != nil {
		return errutil.Wrap(errutil.KindBadRequest, "Invalid destination URL", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errutil.New(errutil.KindBadRequest, "Invalid destination URL")
	}
	return nil
}
