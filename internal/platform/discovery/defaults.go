// Package discovery centralizes service address conventions.
package discovery

import (
	"strconv"
	"strings"
)

const (
	// ServiceRegistry is the registry gRPC service identity.
	ServiceRegistry = "registry"
	// ServiceRegistryAdmin is the registry metrics and health HTTP identity.
	ServiceRegistryAdmin = "registry-admin"
	// ServiceJaeger is the jaeger HTTP service identity.
	ServiceJaeger = "jaeger"
)

const localHost = "localhost"

var grpcPorts = map[string]int{
	ServiceRegistry: 8095,
}

var httpPorts = map[string]int{
	ServiceRegistryAdmin: 9095,
	ServiceJaeger:        16686,
}

// DefaultGRPCPort returns the conventional gRPC port of service, zero when
// unknown.
func DefaultGRPCPort(service string) int {
	return grpcPorts[strings.TrimSpace(service)]
}

// DefaultGRPCAddr returns the canonical in-network gRPC address for a service.
func DefaultGRPCAddr(service string) string {
	service = strings.TrimSpace(service)
	return addr(service, grpcPorts[service])
}

// DefaultHTTPAddr returns the canonical in-network HTTP address for a service.
func DefaultHTTPAddr(service string) string {
	service = strings.TrimSpace(service)
	return addr(service, httpPorts[service])
}

// LocalGRPCAddr returns the gRPC address of service on the local host.
func LocalGRPCAddr(service string) string {
	return addr(localHost, grpcPorts[strings.TrimSpace(service)])
}

// OrDefaultGRPCAddr returns value when set, otherwise the service convention.
func OrDefaultGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return DefaultGRPCAddr(service)
}

// OrLocalGRPCAddr returns value when set, otherwise the local service address.
func OrLocalGRPCAddr(value, service string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	return LocalGRPCAddr(service)
}

func addr(host string, port int) string {
	if host == "" || port <= 0 {
		return ""
	}
	return host + ":" + strconv.Itoa(port)
}
