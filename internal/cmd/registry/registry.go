// Package registry parses registry service flags and launches the service.
package registry

import (
	"context"
	"flag"

	entrypoint "github.com/louisbranch/gns/internal/platform/cmd"
	"github.com/louisbranch/gns/internal/platform/discovery"
	server "github.com/louisbranch/gns/internal/services/registry/app"
)

// Config holds registry command configuration.
type Config struct {
	Port int `env:"GNS_REGISTRY_PORT"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 {
		cfg.Port = discovery.DefaultGRPCPort(discovery.ServiceRegistry)
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The registry gRPC server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the registry gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRegistry, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
