package registry

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	apperrors "github.com/louisbranch/gns/internal/platform/errors"
	"github.com/louisbranch/gns/internal/services/registry/api/grpc/metadata"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/engine"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/storage/sqlite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

var (
	ownerU1    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherU2    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	subgraphS1 = common.HexToHash("0x51")
	subgraphS2 = common.HexToHash("0x52")
	metadataM1 = common.HexToHash("0x6d")
	metadataM2 = common.HexToHash("0x6e")
)

type testServer struct {
	conn *grpc.ClientConn
}

func (s testServer) client(caller domain.Identity) *Client {
	return NewClient(s.conn, WithCaller(caller))
}

func startServer(t *testing.T) testServer {
	t.Helper()
	ring, err := journal.NewKeyring(map[string][]byte{"v1": []byte("secret")}, "v1")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "registry.db"), ring)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	eng := engine.New(store, ring, engine.Options{})
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(eng.Close)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(nil)),
		grpc.ChainStreamInterceptor(metadata.StreamServerInterceptor(nil)),
	)
	RegisterRegistryServer(server, NewService(eng, store))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return testServer{conn: conn}
}

func assertStatus(t *testing.T, err error, want codes.Code, reason apperrors.Code) {
	t.Helper()
	if status.Code(err) != want {
		t.Fatalf("status code = %v (%v), want %v", status.Code(err), err, want)
	}
	if reason != "" && apperrors.ReasonFromStatus(err) != reason {
		t.Fatalf("reason = %s, want %s", apperrors.ReasonFromStatus(err), reason)
	}
}

func TestServiceScenario(t *testing.T) {
	srv := startServer(t)
	owner := srv.client(ownerU1)
	ctx := context.Background()

	claimed, err := owner.ClaimDomain(ctx, "thegraph.com")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	domainHash := domain.HashName("thegraph.com")
	if claimed.DomainHash != domainHash.Hex() || claimed.Type != domain.EventDomainClaimed {
		t.Fatalf("unexpected claim event: %+v", claimed)
	}
	gotOwner, err := owner.GetDomainOwner(ctx, domainHash)
	if err != nil || gotOwner != ownerU1 {
		t.Fatalf("owner = %s, %v", gotOwner.Hex(), err)
	}

	attached, err := owner.AttachSubdomain(ctx, domainHash, "david.thegraph.com", subgraphS1, metadataM1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	subHash := domain.HashName("david.thegraph.com")
	if attached.SubdomainHash != subHash.Hex() {
		t.Fatalf("subdomain hash = %s, want %s", attached.SubdomainHash, subHash.Hex())
	}
	sub, err := owner.GetSubdomain(ctx, domainHash, subHash)
	if err != nil || !sub.Exists || sub.Name != "david.thegraph.com" {
		t.Fatalf("subdomain = %+v, %v", sub, err)
	}

	if _, err := owner.ChangeMetadata(ctx, metadataM2, domainHash, subHash); err != nil {
		t.Fatalf("change metadata: %v", err)
	}
	if _, err := owner.ChangeSubgraphID(ctx, domainHash, subHash, subgraphS2); err != nil {
		t.Fatalf("change subgraph: %v", err)
	}
	pointer, err := owner.GetPointer(ctx, subHash)
	if err != nil {
		t.Fatalf("pointer: %v", err)
	}
	if pointer.SubgraphID != subgraphS2 || pointer.MetadataPointer != metadataM2 {
		t.Fatalf("pointer = %+v", pointer)
	}

	if _, err := owner.DeleteSubdomain(ctx, domainHash, subHash); err != nil {
		t.Fatalf("delete: %v", err)
	}
	pointer, err = owner.GetPointer(ctx, subHash)
	if err != nil || !pointer.IsZero() {
		t.Fatalf("pointer after delete = %+v, %v", pointer, err)
	}
	sub, err = owner.GetSubdomain(ctx, domainHash, subHash)
	if err != nil || sub.Exists {
		t.Fatalf("subdomain after delete = %+v, %v", sub, err)
	}
}

func TestServiceErrors(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	owner := srv.client(ownerU1)
	other := srv.client(otherU2)
	anonymous := srv.client(domain.Identity{})

	if _, err := owner.ClaimDomain(ctx, "thegraph.com"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	domainHash := domain.HashName("thegraph.com")

	_, err := other.ClaimDomain(ctx, "thegraph.com")
	assertStatus(t, err, codes.AlreadyExists, apperrors.CodeDomainAlreadyOwned)

	_, err = other.AttachSubdomain(ctx, domainHash, "evil.thegraph.com", subgraphS1, metadataM1)
	assertStatus(t, err, codes.PermissionDenied, apperrors.CodeDomainNotOwner)

	_, err = owner.ChangeSubgraphID(ctx, domainHash, domain.HashName("missing.thegraph.com"), subgraphS2)
	assertStatus(t, err, codes.FailedPrecondition, apperrors.CodeSubdomainNotRegistered)

	_, err = anonymous.ClaimDomain(ctx, "other.com")
	assertStatus(t, err, codes.Unauthenticated, apperrors.CodeCallerRequired)

	_, err = owner.GetDomainOwner(ctx, domain.HashName("unclaimed.com"))
	assertStatus(t, err, codes.NotFound, apperrors.CodeNotFound)

	_, err = owner.invoke(ctx, MethodClaimDomain, map[string]any{})
	assertStatus(t, err, codes.InvalidArgument, apperrors.CodeInvalidArgument)

	_, err = owner.invoke(ctx, MethodClaimDomain, map[string]any{FieldDomainName: 42.0})
	assertStatus(t, err, codes.InvalidArgument, apperrors.CodeInvalidArgument)

	_, err = owner.ListEvents(ctx, 0, 10, "nope = ")
	assertStatus(t, err, codes.InvalidArgument, apperrors.CodeInvalidArgument)
}

func TestServiceHashesNamesVerbatim(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	owner := srv.client(ownerU1)
	other := srv.client(otherU2)

	padded := " thegraph.com "
	claimed, err := owner.ClaimDomain(ctx, padded)
	if err != nil {
		t.Fatalf("claim padded: %v", err)
	}
	if claimed.DomainHash != domain.HashName(padded).Hex() {
		t.Fatalf("domain hash = %s, want %s", claimed.DomainHash, domain.HashName(padded).Hex())
	}
	if !strings.Contains(string(claimed.PayloadJSON), `" thegraph.com "`) {
		t.Fatalf("payload = %s, want the name as sent", claimed.PayloadJSON)
	}

	// The unpadded name is a different domain.
	if _, err := other.ClaimDomain(ctx, "thegraph.com"); err != nil {
		t.Fatalf("claim unpadded: %v", err)
	}

	empty, err := owner.ClaimDomain(ctx, "")
	if err != nil {
		t.Fatalf("claim empty name: %v", err)
	}
	if empty.DomainHash != domain.HashName("").Hex() {
		t.Fatalf("empty domain hash = %s, want %s", empty.DomainHash, domain.HashName("").Hex())
	}

	attached, err := owner.AttachSubdomain(ctx, domain.HashName(padded), "david.thegraph.com ", subgraphS1, metadataM1)
	if err != nil {
		t.Fatalf("attach padded: %v", err)
	}
	if attached.SubdomainHash != domain.HashName("david.thegraph.com ").Hex() {
		t.Fatalf("subdomain hash = %s, want %s", attached.SubdomainHash, domain.HashName("david.thegraph.com ").Hex())
	}
}

func TestServiceListEvents(t *testing.T) {
	srv := startServer(t)
	ctx := metadata.WithRequestID(context.Background(), "req-list")
	owner := srv.client(ownerU1)
	other := srv.client(otherU2)

	if _, err := owner.ClaimDomain(ctx, "thegraph.com"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := other.ClaimDomain(ctx, "other.com"); err != nil {
		t.Fatalf("claim other: %v", err)
	}
	if _, err := owner.ChangeAccountMetadata(ctx, metadataM1); err != nil {
		t.Fatalf("account metadata: %v", err)
	}

	page, err := owner.ListEvents(ctx, 0, 2, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Events) != 2 || page.NextAfterSeq != 2 {
		t.Fatalf("first page = %d events, next %d", len(page.Events), page.NextAfterSeq)
	}
	if page.Events[0].RequestID != "req-list" {
		t.Fatalf("request id = %q, want req-list", page.Events[0].RequestID)
	}
	page, err = owner.ListEvents(ctx, page.NextAfterSeq, 2, "")
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(page.Events) != 1 || page.NextAfterSeq != 0 || page.Events[0].Seq != 3 {
		t.Fatalf("second page = %+v", page)
	}

	filtered, err := owner.ListEvents(ctx, 0, 0, `actor_id = "`+ownerU1.Hex()+`"`)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(filtered.Events) != 2 {
		t.Fatalf("filtered events = %d, want 2", len(filtered.Events))
	}
	for _, env := range filtered.Events {
		if env.ActorID != strings.ToLower(ownerU1.Hex()) {
			t.Fatalf("unexpected actor %s", env.ActorID)
		}
	}
}

func TestServiceWatchEvents(t *testing.T) {
	srv := startServer(t)
	owner := srv.client(ownerU1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := owner.ClaimDomain(ctx, "thegraph.com"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	stop := errors.New("stop")
	received := make(chan journal.Envelope, 4)
	done := make(chan error, 1)
	go func() {
		done <- owner.WatchEvents(ctx, 0, func(env journal.Envelope) error {
			received <- env
			if env.Seq == 2 {
				return stop
			}
			return nil
		})
	}()

	first := <-received
	if first.Seq != 1 || first.Type != domain.EventDomainClaimed {
		t.Fatalf("backlog event = %+v", first)
	}
	if _, err := owner.AttachSubdomain(ctx, domain.HashName("thegraph.com"), "david.thegraph.com", subgraphS1, metadataM1); err != nil {
		t.Fatalf("attach: %v", err)
	}
	second := <-received
	if second.Seq != 2 || second.Type != domain.EventSubgraphAttached {
		t.Fatalf("live event = %+v", second)
	}
	if err := <-done; !errors.Is(err, stop) {
		t.Fatalf("watch err = %v, want stop", err)
	}
}

func TestServiceLocalizesErrors(t *testing.T) {
	srv := startServer(t)
	ctx := context.Background()
	if _, err := srv.client(ownerU1).ClaimDomain(ctx, "thegraph.com"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	_, err := NewClient(srv.conn, WithCaller(otherU2), WithLocale("pt-BR")).ClaimDomain(ctx, "thegraph.com")
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected status error, got %v", err)
	}
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		if msg, ok := detail.(*errdetails.LocalizedMessage); ok {
			localized = msg
		}
	}
	if localized == nil {
		t.Fatal("expected localized message detail")
	}
	if localized.GetLocale() != "pt-BR" || localized.GetMessage() != "O domínio já possui dono." {
		t.Fatalf("localized = %s %q", localized.GetLocale(), localized.GetMessage())
	}
}
