// Package timeouts defines timeout constants shared by GNS binaries.
package timeouts

import "time"

// GRPCDial caps the wait for a registry peer to report healthy.
const GRPCDial = 2 * time.Second

// GRPCRequest caps a single unary registry call made by the CLI.
const GRPCRequest = 5 * time.Second

// ReadHeader limits how long the admin HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the admin HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
