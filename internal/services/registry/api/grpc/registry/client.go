package registry

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/louisbranch/gns/internal/services/registry/api/grpc/metadata"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed RegistryService client.
type Client struct {
	conn   grpc.ClientConnInterface
	caller domain.Identity
	locale string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCaller sets the identity sent on mutating calls.
func WithCaller(caller domain.Identity) ClientOption {
	return func(c *Client) { c.caller = caller }
}

// WithLocale sets the locale of error messages returned by the server.
func WithLocale(locale string) ClientOption {
	return func(c *Client) { c.locale = locale }
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface, opts ...ClientOption) *Client {
	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subdomain is the GetSubdomain answer.
type Subdomain struct {
	Exists bool
	Name   string
}

// EventPage is one page of ListEvents.
type EventPage struct {
	Events       []journal.Envelope
	NextAfterSeq uint64
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	caller := ""
	if c.caller != (domain.Identity{}) {
		caller = c.caller.Hex()
	}
	return metadata.OutgoingContext(ctx, caller, metadata.RequestIDFromContext(ctx), c.locale)
}

func (c *Client) invoke(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(c.outgoing(ctx), FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) command(ctx context.Context, method string, in map[string]any) (journal.Envelope, error) {
	out, err := c.invoke(ctx, method, in)
	if err != nil {
		return journal.Envelope{}, err
	}
	return EnvelopeFromStruct(out.GetFields()[FieldEvent].GetStructValue())
}

// ClaimDomain claims name and returns the recorded event.
func (c *Client) ClaimDomain(ctx context.Context, name string) (journal.Envelope, error) {
	return c.command(ctx, MethodClaimDomain, map[string]any{FieldDomainName: name})
}

// AttachSubdomain attaches name under domainHash.
func (c *Client) AttachSubdomain(ctx context.Context, domainHash domain.Key, name string, subgraphID domain.SubgraphID, pointer domain.MetadataPointer) (journal.Envelope, error) {
	return c.command(ctx, MethodAttachSubdomain, map[string]any{
		FieldDomainHash:      domainHash.Hex(),
		FieldSubdomainName:   name,
		FieldSubgraphID:      subgraphID.Hex(),
		FieldMetadataPointer: pointer.Hex(),
	})
}

// ChangeMetadata replaces the metadata pointer of subdomainHash.
func (c *Client) ChangeMetadata(ctx context.Context, pointer domain.MetadataPointer, domainHash, subdomainHash domain.Key) (journal.Envelope, error) {
	return c.command(ctx, MethodChangeMetadata, map[string]any{
		FieldDomainHash:      domainHash.Hex(),
		FieldSubdomainHash:   subdomainHash.Hex(),
		FieldMetadataPointer: pointer.Hex(),
	})
}

// ChangeSubgraphID replaces the subgraph id of subdomainHash.
func (c *Client) ChangeSubgraphID(ctx context.Context, domainHash, subdomainHash domain.Key, subgraphID domain.SubgraphID) (journal.Envelope, error) {
	return c.command(ctx, MethodChangeSubgraphID, map[string]any{
		FieldDomainHash:    domainHash.Hex(),
		FieldSubdomainHash: subdomainHash.Hex(),
		FieldSubgraphID:    subgraphID.Hex(),
	})
}

// DeleteSubdomain removes subdomainHash from domainHash.
func (c *Client) DeleteSubdomain(ctx context.Context, domainHash, subdomainHash domain.Key) (journal.Envelope, error) {
	return c.command(ctx, MethodDeleteSubdomain, map[string]any{
		FieldDomainHash:    domainHash.Hex(),
		FieldSubdomainHash: subdomainHash.Hex(),
	})
}

// ChangeAccountMetadata records pointer as the caller's account metadata.
func (c *Client) ChangeAccountMetadata(ctx context.Context, pointer domain.MetadataPointer) (journal.Envelope, error) {
	return c.command(ctx, MethodChangeAccountMetadata, map[string]any{FieldMetadataPointer: pointer.Hex()})
}

// GetDomainOwner returns the owner of domainHash. Unclaimed domains fail
// with codes.NotFound.
func (c *Client) GetDomainOwner(ctx context.Context, domainHash domain.Key) (domain.Identity, error) {
	out, err := c.invoke(ctx, MethodGetDomainOwner, map[string]any{FieldDomainHash: domainHash.Hex()})
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.ParseIdentity(out.GetFields()[FieldOwner].GetStringValue())
}

// GetSubdomain reports whether subdomainHash is attached under domainHash.
func (c *Client) GetSubdomain(ctx context.Context, domainHash, subdomainHash domain.Key) (Subdomain, error) {
	out, err := c.invoke(ctx, MethodGetSubdomain, map[string]any{
		FieldDomainHash:    domainHash.Hex(),
		FieldSubdomainHash: subdomainHash.Hex(),
	})
	if err != nil {
		return Subdomain{}, err
	}
	fields := out.GetFields()
	return Subdomain{
		Exists: fields[FieldExists].GetBoolValue(),
		Name:   fields[FieldSubdomainName].GetStringValue(),
	}, nil
}

// GetPointer returns the pointer record of subdomainHash.
func (c *Client) GetPointer(ctx context.Context, subdomainHash domain.Key) (domain.Pointer, error) {
	out, err := c.invoke(ctx, MethodGetPointer, map[string]any{FieldSubdomainHash: subdomainHash.Hex()})
	if err != nil {
		return domain.Pointer{}, err
	}
	subgraphID, err := domain.ParseKey(out.GetFields()[FieldSubgraphID].GetStringValue())
	if err != nil {
		return domain.Pointer{}, fmt.Errorf("decode subgraph id: %w", err)
	}
	metadataPointer, err := domain.ParseKey(out.GetFields()[FieldMetadataPointer].GetStringValue())
	if err != nil {
		return domain.Pointer{}, fmt.Errorf("decode metadata pointer: %w", err)
	}
	return domain.Pointer{SubgraphID: subgraphID, MetadataPointer: metadataPointer}, nil
}

// ListEvents returns one page of journal events after afterSeq.
func (c *Client) ListEvents(ctx context.Context, afterSeq uint64, pageSize int, filter string) (EventPage, error) {
	out, err := c.invoke(ctx, MethodListEvents, map[string]any{
		FieldAfterSeq: float64(afterSeq),
		FieldPageSize: float64(pageSize),
		FieldFilter:   filter,
	})
	if err != nil {
		return EventPage{}, err
	}
	page := EventPage{NextAfterSeq: uint64(out.GetFields()[FieldNextAfterSeq].GetNumberValue())}
	for _, value := range out.GetFields()[FieldEvents].GetListValue().GetValues() {
		env, err := EnvelopeFromStruct(value.GetStructValue())
		if err != nil {
			return EventPage{}, err
		}
		page.Events = append(page.Events, env)
	}
	return page, nil
}

// WatchEvents streams events after afterSeq to fn until ctx ends, the server
// closes the stream, or fn returns an error.
func (c *Client) WatchEvents(ctx context.Context, afterSeq uint64, fn func(journal.Envelope) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	desc := &ServiceDesc.Streams[0]
	stream, err := c.conn.NewStream(c.outgoing(ctx), desc, FullMethod(MethodWatchEvents))
	if err != nil {
		return err
	}
	req, err := structpb.NewStruct(map[string]any{FieldAfterSeq: float64(afterSeq)})
	if err != nil {
		return err
	}
	if err := stream.SendMsg(req); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := new(structpb.Struct)
		if err := stream.RecvMsg(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		env, err := EnvelopeFromStruct(out)
		if err != nil {
			return err
		}
		if err := fn(env); err != nil {
			return err
		}
	}
}
