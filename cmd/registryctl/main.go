// Package main runs the registry command-line client.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	registryctl "github.com/louisbranch/gns/internal/cmd/registryctl"
	entrypoint "github.com/louisbranch/gns/internal/platform/cmd"
	"github.com/louisbranch/gns/internal/platform/config"
)

func main() {
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceRegistryCtl))
	cfg, err := registryctl.ParseConfig()
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := registryctl.Run(ctx, cfg, nil, os.Args[1:], os.Stdout); err != nil {
		config.Exitf("registryctl: %v", err)
	}
}
