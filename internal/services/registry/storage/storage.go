// Package storage defines persistence contracts for the registry service.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Subdomain is the projection row of an attached subdomain.
type Subdomain struct {
	DomainHash    domain.Key
	SubdomainHash domain.Key
	Name          string
}

// EventPage is one ordered page of journal envelopes.
type EventPage struct {
	Events []journal.Envelope
	// NextAfterSeq is the cursor for the following page, zero when exhausted.
	NextAfterSeq uint64
}

// ListEventsRequest selects journal envelopes after a sequence cursor.
type ListEventsRequest struct {
	AfterSeq uint64
	PageSize int
	// Filter is an AIP-160 expression over type, actor_id, request_id,
	// domain_hash, subdomain_hash, seq and ts.
	Filter string
}

// EventStore appends to and reads from the integrity journal.
type EventStore interface {
	// AppendEvents seals envs after the current journal head and applies
	// their projection changes in one transaction.
	AppendEvents(ctx context.Context, envs []journal.Envelope) ([]journal.Envelope, error)
	ListEvents(ctx context.Context, req ListEventsRequest) (EventPage, error)
	// ReplayEvents streams every envelope in seq order.
	ReplayEvents(ctx context.Context, fn func(journal.Envelope) error) error
	LastEvent(ctx context.Context) (journal.Envelope, error)
}

// ProjectionStore reads the registry mappings kept alongside the journal.
type ProjectionStore interface {
	GetDomainOwner(ctx context.Context, domainHash domain.Key) (domain.Identity, error)
	GetSubdomain(ctx context.Context, domainHash, subdomainHash domain.Key) (Subdomain, error)
	GetPointer(ctx context.Context, subdomainHash domain.Key) (domain.Pointer, error)
}

// Store combines the journal and its projections.
type Store interface {
	EventStore
	ProjectionStore
	Close() error
}
