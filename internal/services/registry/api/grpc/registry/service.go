// Package registry exposes the GNS registry over gRPC.
package registry

import (
	"context"
	"errors"

	"github.com/louisbranch/gns/internal/platform/grpc/pagination"
	"github.com/louisbranch/gns/internal/services/registry/api/grpc/metadata"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/storage"
	"github.com/louisbranch/gns/internal/services/registry/storage/filter"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var eventPageSize = pagination.PageSizeConfig{Default: 50, Max: 500}

// Executor runs commands through the single writer and streams its journal.
type Executor interface {
	Execute(ctx context.Context, cmd domain.Command, requestID string) (journal.Envelope, error)
	Watch(ctx context.Context, afterSeq uint64, send func(journal.Envelope) error) error
}

// Store is the read side the service queries.
type Store interface {
	storage.ProjectionStore
	ListEvents(ctx context.Context, req storage.ListEventsRequest) (storage.EventPage, error)
}

var _ RegistryServer = (*Service)(nil)

// Service implements RegistryServer.
type Service struct {
	executor Executor
	store    Store
}

// NewService creates a registry service.
func NewService(executor Executor, store Store) *Service {
	return &Service{executor: executor, store: store}
}

// ClaimDomain claims domain_name for the caller.
func (s *Service) ClaimDomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	name, err := nameField(in, FieldDomainName)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return s.execute(ctx, func(caller domain.Identity) domain.Command {
		return domain.ClaimDomain(name, caller)
	}, FieldDomainHash)
}

// AttachSubdomain attaches subdomain_name under domain_hash.
func (s *Service) AttachSubdomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domainHash, err := keyField(in, FieldDomainHash)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	name, err := nameField(in, FieldSubdomainName)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	subgraphID, err := optionalKeyField(in, FieldSubgraphID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	pointer, err := optionalKeyField(in, FieldMetadataPointer)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return s.execute(ctx, func(caller domain.Identity) domain.Command {
		return domain.AttachSubdomain(domainHash, name, subgraphID, pointer, caller)
	}, FieldSubdomainHash)
}

// ChangeMetadata replaces the metadata pointer of subdomain_hash.
func (s *Service) ChangeMetadata(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domainHash, subdomainHash, err := subdomainAddress(in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	pointer, err := optionalKeyField(in, FieldMetadataPointer)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return s.execute(ctx, func(caller domain.Identity) domain.Command {
		return domain.ChangeMetadata(pointer, domainHash, subdomainHash, caller)
	}, "")
}

// ChangeSubgraphID replaces the subgraph id of an attached subdomain.
func (s *Service) ChangeSubgraphID(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domainHash, subdomainHash, err := subdomainAddress(in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	subgraphID, err := optionalKeyField(in, FieldSubgraphID)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return s.execute(ctx, func(caller domain.Identity) domain.Command {
		return domain.ChangeSubgraphID(domainHash, subdomainHash, subgraphID, caller)
	}, "")
}

// DeleteSubdomain removes a subdomain and its pointer record.
func (s *Service) DeleteSubdomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domainHash, subdomainHash, err := subdomainAddress(in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return s.execute(ctx, func(caller domain.Identity) domain.Command {
		return domain.DeleteSubdomain(domainHash, subdomainHash, caller)
	}, "")
}

// ChangeAccountMetadata records an account metadata pointer for the caller.
func (s *Service) ChangeAccountMetadata(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	pointer, err := optionalKeyField(in, FieldMetadataPointer)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return s.execute(ctx, func(caller domain.Identity) domain.Command {
		return domain.ChangeAccountMetadata(pointer, caller)
	}, "")
}

// GetDomainOwner returns the owner of domain_hash.
func (s *Service) GetDomainOwner(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domainHash, err := keyField(in, FieldDomainHash)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	owner, err := s.store.GetDomainOwner(ctx, domainHash)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		FieldDomainHash: domainHash.Hex(),
		FieldOwner:      owner.Hex(),
	})
}

// GetSubdomain reports whether subdomain_hash is attached under domain_hash.
func (s *Service) GetSubdomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	domainHash, subdomainHash, err := subdomainAddress(in)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	out := map[string]any{
		FieldDomainHash:    domainHash.Hex(),
		FieldSubdomainHash: subdomainHash.Hex(),
		FieldExists:        false,
	}
	sub, err := s.store.GetSubdomain(ctx, domainHash, subdomainHash)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, toStatus(ctx, err)
	default:
		out[FieldExists] = true
		out[FieldSubdomainName] = sub.Name
	}
	return structpb.NewStruct(out)
}

// GetPointer returns the pointer record of subdomain_hash, zero when absent.
func (s *Service) GetPointer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	subdomainHash, err := keyField(in, FieldSubdomainHash)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	pointer, err := s.store.GetPointer(ctx, subdomainHash)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{
		FieldSubdomainHash:   subdomainHash.Hex(),
		FieldSubgraphID:      pointer.SubgraphID.Hex(),
		FieldMetadataPointer: pointer.MetadataPointer.Hex(),
	})
}

// ListEvents returns one page of the journal.
func (s *Service) ListEvents(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	afterSeq, err := uintField(in, FieldAfterSeq)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	size, err := uintField(in, FieldPageSize)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	expression := stringField(in, FieldFilter)
	if _, err := filter.Parse(expression); err != nil {
		return nil, toStatus(ctx, invalidField(FieldFilter, err))
	}
	page, err := s.store.ListEvents(ctx, storage.ListEventsRequest{
		AfterSeq: afterSeq,
		PageSize: pagination.ClampPageSize(int32(min(size, uint64(eventPageSize.Max))), eventPageSize),
		Filter:   expression,
	})
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	events := make([]any, 0, len(page.Events))
	for _, env := range page.Events {
		rendered, err := EnvelopeToStruct(env)
		if err != nil {
			return nil, toStatus(ctx, err)
		}
		events = append(events, rendered.AsMap())
	}
	return structpb.NewStruct(map[string]any{
		FieldEvents:       events,
		FieldNextAfterSeq: float64(page.NextAfterSeq),
	})
}

// WatchEvents streams the journal after after_seq, then live events.
func (s *Service) WatchEvents(in *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	afterSeq, err := uintField(in, FieldAfterSeq)
	if err != nil {
		return toStatus(ctx, err)
	}
	err = s.executor.Watch(ctx, afterSeq, func(env journal.Envelope) error {
		out, err := EnvelopeToStruct(env)
		if err != nil {
			return err
		}
		return stream.SendMsg(out)
	})
	return toStatus(ctx, err)
}

func (s *Service) execute(ctx context.Context, build func(domain.Identity) domain.Command, hashField string) (*structpb.Struct, error) {
	caller, err := callerFromContext(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	env, err := s.executor.Execute(ctx, build(caller), metadata.RequestIDFromContext(ctx))
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	event, err := EnvelopeToStruct(env)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	out := map[string]any{FieldEvent: event.AsMap()}
	switch hashField {
	case FieldDomainHash:
		out[hashField] = env.DomainHash
	case FieldSubdomainHash:
		out[hashField] = env.SubdomainHash
	}
	return structpb.NewStruct(out)
}

func callerFromContext(ctx context.Context) (domain.Identity, error) {
	raw := metadata.CallerFromContext(ctx)
	if raw == "" {
		return domain.Identity{}, domain.ErrCallerRequired
	}
	caller, err := domain.ParseIdentity(raw)
	if err != nil {
		return domain.Identity{}, invalidField(metadata.CallerHeader, err)
	}
	return caller, nil
}

func subdomainAddress(in *structpb.Struct) (domain.Key, domain.Key, error) {
	domainHash, err := keyField(in, FieldDomainHash)
	if err != nil {
		return domain.Key{}, domain.Key{}, err
	}
	subdomainHash, err := keyField(in, FieldSubdomainHash)
	if err != nil {
		return domain.Key{}, domain.Key{}, err
	}
	return domainHash, subdomainHash, nil
}
