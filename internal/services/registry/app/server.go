// Package server wires the registry engine, storage, and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/gns/internal/platform/config"
	"github.com/louisbranch/gns/internal/platform/id"
	"github.com/louisbranch/gns/internal/platform/timeouts"
	"github.com/louisbranch/gns/internal/services/registry/api/grpc/metadata"
	registryservice "github.com/louisbranch/gns/internal/services/registry/api/grpc/registry"
	"github.com/louisbranch/gns/internal/services/registry/engine"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"github.com/louisbranch/gns/internal/services/registry/observability"
	registrysqlite "github.com/louisbranch/gns/internal/services/registry/storage/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// maxAdminConns caps concurrent scrapes and health probes.
const maxAdminConns = 16

type serverEnv struct {
	DBPath      string `env:"GNS_REGISTRY_DB_PATH"`
	MetricsAddr string `env:"GNS_REGISTRY_METRICS_ADDR"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "registry.db")
	}
	return cfg
}

// Server hosts the registry gRPC API, its engine, and the admin listener.
type Server struct {
	listener      net.Listener
	grpcServer    *grpc.Server
	health        *health.Server
	store         *registrysqlite.Store
	engine        *engine.Engine
	adminListener net.Listener
	adminServer   *http.Server
}

// New creates a configured registry server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured registry server for the provided address.
// The journal is replayed and verified before the server accepts calls.
func NewWithAddr(addr string) (*Server, error) {
	srvEnv := loadServerEnv()
	keyring, err := journal.KeyringFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load event hmac keys: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	store, err := openRegistryStore(srvEnv.DBPath, keyring)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	registerer := prometheus.NewRegistry()
	registerer.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registerer)

	eng := engine.New(store, keyring, engine.Options{Metrics: metrics})
	if err := eng.Start(context.Background()); err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("start registry engine: %w", err)
	}

	srv := &Server{
		listener: listener,
		store:    store,
		engine:   eng,
	}
	if addr := strings.TrimSpace(srvEnv.MetricsAddr); addr != "" {
		adminListener, err := net.Listen("tcp", addr)
		if err != nil {
			srv.Close()
			return nil, fmt.Errorf("listen admin on %s: %w", addr, err)
		}
		srv.adminListener = netutil.LimitListener(adminListener, maxAdminConns)
		srv.adminServer = &http.Server{
			Handler:           newAdminRouter(registerer, store),
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
	}

	srv.grpcServer = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(id.NewID)),
		grpc.ChainStreamInterceptor(metadata.StreamServerInterceptor(id.NewID)),
	)
	srv.health = health.NewServer()
	registryservice.RegisterRegistryServer(srv.grpcServer, registryservice.NewService(eng, store))
	grpc_health_v1.RegisterHealthServer(srv.grpcServer, srv.health)
	srv.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	srv.health.SetServingStatus(registryservice.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv, nil
}

// Addr returns the gRPC listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// AdminAddr returns the admin HTTP listener address, empty when disabled.
func (s *Server) AdminAddr() string {
	if s == nil || s.adminListener == nil {
		return ""
	}
	return s.adminListener.Addr().String()
}

// Run creates and serves a registry server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC and admin servers until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	if s.adminServer != nil {
		log.Printf("registry admin listening at %v", s.adminListener.Addr())
		go func() {
			if err := s.adminServer.Serve(s.adminListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("serve registry admin: %v", err)
			}
		}()
	}

	log.Printf("registry server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.shutdownAdmin()
		// Watch streams only end once the engine closes.
		s.engine.Close()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

func (s *Server) shutdownAdmin() {
	if s.adminServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.adminServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown registry admin: %v", err)
	}
}

// Close releases registry server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.engine != nil {
		s.engine.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.adminServer != nil {
		_ = s.adminServer.Close()
	} else if s.adminListener != nil {
		_ = s.adminListener.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close registry store: %v", err)
		}
	}
}

func openRegistryStore(path string, keyring *journal.Keyring) (*registrysqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := registrysqlite.Open(path, keyring)
	if err != nil {
		return nil, fmt.Errorf("open registry sqlite store: %w", err)
	}
	return store, nil
}
