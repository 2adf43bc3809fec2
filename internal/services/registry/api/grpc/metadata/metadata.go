// Package metadata defines the gRPC headers carried by registry calls.
//
// The caller header holds an identity that an upstream gateway has already
// authenticated; the registry trusts it as-is.
package metadata

import (
	"context"
	"strings"

	"github.com/louisbranch/gns/internal/platform/id"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	// CallerHeader carries the authenticated caller address.
	CallerHeader = "x-gns-caller"
	// RequestIDHeader carries the request correlation id.
	RequestIDHeader = "x-gns-request-id"
	// LocaleHeader selects the language of localized error details.
	LocaleHeader = "x-gns-locale"
)

type contextKey string

const requestIDContextKey contextKey = "gns-request-id"

// RequestIDFromContext returns the request ID stored by the interceptors.
func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDContextKey).(string)
	return value
}

// WithRequestID stores the request ID in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// CallerFromContext returns the raw caller header value.
func CallerFromContext(ctx context.Context) string {
	return incomingValue(ctx, CallerHeader)
}

// LocaleFromContext returns the requested error locale, empty when unset.
func LocaleFromContext(ctx context.Context) string {
	return incomingValue(ctx, LocaleHeader)
}

// OutgoingContext attaches caller, request id, and locale headers to ctx.
// Empty values are omitted.
func OutgoingContext(ctx context.Context, caller, requestID, locale string) context.Context {
	var pairs []string
	for _, kv := range [][2]string{{CallerHeader, caller}, {RequestIDHeader, requestID}, {LocaleHeader, locale}} {
		if value := strings.TrimSpace(kv[1]); value != "" {
			pairs = append(pairs, kv[0], value)
		}
	}
	if len(pairs) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}

// IsPrintableASCII reports whether a non-empty string contains only printable
// ASCII characters.
func IsPrintableASCII(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < 0x20 || value[i] > 0x7e {
			return false
		}
	}
	return true
}

// FirstMetadataValue returns the first printable ASCII value for key.
func FirstMetadataValue(md metadata.MD, key string) string {
	for _, value := range md.Get(key) {
		if IsPrintableASCII(value) {
			return value
		}
	}
	return ""
}

// UnaryServerInterceptor guarantees every unary call has a request ID, echoes
// it in the response headers, and tags the active span with it.
func UnaryServerInterceptor(idGenerator func() (string, error)) grpc.UnaryServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, requestID, err := ensureRequestID(ctx, idGenerator)
		if err != nil {
			return nil, err
		}
		if err := grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return nil, status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is UnaryServerInterceptor for streaming calls.
func StreamServerInterceptor(idGenerator func() (string, error)) grpc.StreamServerInterceptor {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, requestID, err := ensureRequestID(stream.Context(), idGenerator)
		if err != nil {
			return err
		}
		if err := stream.SetHeader(metadata.Pairs(RequestIDHeader, requestID)); err != nil {
			return status.Errorf(codes.Internal, "set response metadata: %v", err)
		}
		return handler(srv, &wrappedServerStream{ServerStream: stream, ctx: ctx})
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

func ensureRequestID(ctx context.Context, idGenerator func() (string, error)) (context.Context, string, error) {
	requestID := incomingValue(ctx, RequestIDHeader)
	if requestID == "" {
		generated, err := idGenerator()
		if err != nil {
			return nil, "", status.Errorf(codes.Internal, "generate request id: %v", err)
		}
		requestID = generated
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("gns.request_id", requestID))
	return WithRequestID(ctx, requestID), requestID, nil
}

func incomingValue(ctx context.Context, header string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return FirstMetadataValue(md, header)
}
