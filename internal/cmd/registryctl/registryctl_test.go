package registryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"

	registryservice "github.com/louisbranch/gns/internal/services/registry/api/grpc/registry"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/engine"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/storage/sqlite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	testCaller   = "0x00000000000000000000000000000000000000a1"
	testSubgraph = "0x0000000000000000000000000000000000000000000000000000000000000051"
	testSecret   = "registryctl-secret"
)

func startRegistry(t *testing.T) string {
	t.Helper()
	ring, err := journal.NewKeyring(map[string][]byte{"v1": []byte(testSecret)}, "v1")
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
	server := grpc.NewServer()
	registryservice.RegisterRegistryServer(server, registryservice.NewService(eng, store))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)
	return listener.Addr().String()
}

func insecureDial(_ context.Context, addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func run(t *testing.T, cfg Config, args ...string) (map[string]any, error) {
	t.Helper()
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, insecureDial, args, &out); err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	return decoded, nil
}

func TestHashCommandRunsOffline(t *testing.T) {
	out, err := run(t, Config{Addr: "127.0.0.1:1"}, "hash", "thegraph.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if out["hash"] != domain.HashName("thegraph.com").Hex() {
		t.Fatalf("hash = %v", out["hash"])
	}
}

func TestCommandsRoundTrip(t *testing.T) {
	cfg := Config{Addr: startRegistry(t), Caller: testCaller}

	claimed, err := run(t, cfg, "claim", "thegraph.com")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed["type"] != string(domain.EventDomainClaimed) {
		t.Fatalf("claim type = %v", claimed["type"])
	}

	owner, err := run(t, cfg, "owner", "thegraph.com")
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if !strings.EqualFold(owner["owner"].(string), testCaller) {
		t.Fatalf("owner = %v", owner["owner"])
	}

	if _, err := run(t, cfg, "attach", "thegraph.com", "david.thegraph.com", "--subgraph", testSubgraph); err != nil {
		t.Fatalf("attach: %v", err)
	}
	sub, err := run(t, cfg, "subdomain", "thegraph.com", "david.thegraph.com")
	if err != nil {
		t.Fatalf("subdomain: %v", err)
	}
	if sub["exists"] != true {
		t.Fatalf("subdomain = %v", sub)
	}
	pointer, err := run(t, cfg, "pointer", domain.HashName("david.thegraph.com").Hex())
	if err != nil {
		t.Fatalf("pointer: %v", err)
	}
	if pointer["subgraph_id"] != testSubgraph {
		t.Fatalf("pointer = %v", pointer)
	}

	events, err := run(t, cfg, "events", "--filter", `type = "subgraph.attached"`)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if list, _ := events["events"].([]any); len(list) != 1 {
		t.Fatalf("filtered events = %v", events["events"])
	}

	t.Setenv("GNS_EVENT_HMAC_KEYS", "")
	t.Setenv("GNS_EVENT_HMAC_KEY_ID", "")
	t.Setenv("GNS_EVENT_HMAC_KEY", testSecret)
	verified, err := run(t, cfg, "verify")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified["head_seq"] != float64(2) {
		t.Fatalf("verify = %v", verified)
	}

	t.Setenv("GNS_EVENT_HMAC_KEY", "wrong-secret")
	if _, err := run(t, cfg, "verify"); err == nil {
		t.Fatal("expected verify to fail with a foreign key")
	}
}

func TestCommandErrors(t *testing.T) {
	addr := startRegistry(t)

	_, err := run(t, Config{Addr: addr}, "claim", "thegraph.com")
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("claim without caller: %v", err)
	}
	if _, err := run(t, Config{Addr: addr, Caller: "not-an-address"}, "claim", "thegraph.com"); err == nil {
		t.Fatal("expected malformed caller error")
	}
	if _, err := run(t, Config{Addr: addr, Caller: testCaller}, "attach", "thegraph.com", "a.thegraph.com", "--subgraph", "0x51"); err == nil {
		t.Fatal("expected malformed subgraph error")
	}
	if _, err := run(t, Config{Addr: addr, Caller: testCaller}, "events", "--follow", "--filter", `seq > 1`); err == nil {
		t.Fatal("expected --follow with --filter to fail")
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig()
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:8095" {
		t.Fatalf("addr = %q, want localhost:8095", cfg.Addr)
	}
}
