// Package registryctl implements the registry command-line client.
package registryctl

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	entrypoint "github.com/louisbranch/gns/internal/platform/cmd"
	"github.com/louisbranch/gns/internal/platform/discovery"
	platformgrpc "github.com/louisbranch/gns/internal/platform/grpc"
	"github.com/louisbranch/gns/internal/platform/timeouts"
	registryservice "github.com/louisbranch/gns/internal/services/registry/api/grpc/registry"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// Config holds registryctl configuration.
type Config struct {
	Addr   string `env:"GNS_REGISTRY_ADDR"`
	Caller string `env:"GNS_CALLER"`
	Locale string `env:"GNS_LOCALE"`
}

// ParseConfig loads registryctl defaults from the environment. The address
// defaults to the registry port on localhost.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Addr = discovery.OrLocalGRPCAddr(cfg.Addr, discovery.ServiceRegistry)
	return cfg, nil
}

// Dialer opens a connection to the registry at addr.
type Dialer func(ctx context.Context, addr string) (*grpc.ClientConn, error)

// DialRegistry waits for the registry health check before returning.
func DialRegistry(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	return platformgrpc.DialWithHealth(ctx, addr, registryservice.ServiceName, timeouts.GRPCDial, log.Printf)
}

type cli struct {
	cfg     Config
	dial    Dialer
	out     io.Writer
	timeout time.Duration
}

// Run executes registryctl with args and writes results to out.
func Run(ctx context.Context, cfg Config, dial Dialer, args []string, out io.Writer) error {
	root := NewRootCommand(cfg, dial, out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the registryctl command tree.
func NewRootCommand(cfg Config, dial Dialer, out io.Writer) *cobra.Command {
	if dial == nil {
		dial = DialRegistry
	}
	c := &cli{cfg: cfg, dial: dial, out: out, timeout: timeouts.GRPCRequest}

	root := &cobra.Command{
		Use:   "registryctl",
		Short: "Claim names and manage subdomain records in the GNS registry",
		Long: `registryctl talks to a running registry service over gRPC.

Domain and subdomain arguments accept either a plain name, which is hashed
with keccak-256, or a 0x-prefixed 32-byte hash.

Examples:
  # Claim a domain as the configured caller
  GNS_CALLER=0x00000000000000000000000000000000000000a1 registryctl claim thegraph.com

  # Attach a subdomain with a subgraph id
  registryctl attach thegraph.com david.thegraph.com --subgraph 0x51...

  # Follow the event journal
  registryctl events --follow`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.cfg.Addr, "addr", cfg.Addr, "registry gRPC address (GNS_REGISTRY_ADDR)")
	root.PersistentFlags().StringVar(&c.cfg.Caller, "caller", cfg.Caller, "caller account address (GNS_CALLER)")
	root.PersistentFlags().StringVar(&c.cfg.Locale, "locale", cfg.Locale, "locale for error messages (GNS_LOCALE)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", c.timeout, "timeout for a single request")

	root.AddCommand(
		c.hashCommand(),
		c.claimCommand(),
		c.attachCommand(),
		c.setMetadataCommand(),
		c.setSubgraphCommand(),
		c.deleteCommand(),
		c.accountMetadataCommand(),
		c.ownerCommand(),
		c.subdomainCommand(),
		c.pointerCommand(),
		c.eventsCommand(),
		c.verifyCommand(),
	)
	return root
}

// withClient dials the registry and runs fn with a typed client.
func (c *cli) withClient(ctx context.Context, fn func(*registryservice.Client) error) error {
	var opts []registryservice.ClientOption
	if caller := strings.TrimSpace(c.cfg.Caller); caller != "" {
		identity, err := domain.ParseIdentity(caller)
		if err != nil {
			return fmt.Errorf("caller: %w", err)
		}
		opts = append(opts, registryservice.WithCaller(identity))
	}
	if locale := strings.TrimSpace(c.cfg.Locale); locale != "" {
		opts = append(opts, registryservice.WithLocale(locale))
	}

	conn, err := c.dial(ctx, c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("connect to registry at %s: %w", c.cfg.Addr, err)
	}
	defer func() { _ = conn.Close() }()
	return fn(registryservice.NewClient(conn, opts...))
}

// unary runs fn under the per-request timeout.
func (c *cli) unary(cmd *cobra.Command, fn func(context.Context, *registryservice.Client) error) error {
	ctx := cmd.Context()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.withClient(ctx, func(client *registryservice.Client) error {
		return fn(ctx, client)
	})
}

// resolveKey accepts a 0x-prefixed hash or a name to hash.
func resolveKey(arg string) domain.Key {
	if key, err := domain.ParseKey(arg); err == nil {
		return key
	}
	return domain.HashName(arg)
}

func parseOptionalKey(flag, value string) (domain.Key, error) {
	if strings.TrimSpace(value) == "" {
		return domain.Key{}, nil
	}
	key, err := domain.ParseKey(value)
	if err != nil {
		return domain.Key{}, fmt.Errorf("--%s: %w", flag, err)
	}
	return key, nil
}
