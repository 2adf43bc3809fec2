package registry

import (
	"context"
	"errors"
	"log"

	apperrors "github.com/louisbranch/gns/internal/platform/errors"
	"github.com/louisbranch/gns/internal/services/registry/api/grpc/metadata"
	"github.com/louisbranch/gns/internal/services/registry/engine"
	"github.com/louisbranch/gns/internal/services/registry/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus converts a service error into a gRPC status error. Domain errors
// carry ErrorInfo and a message localized for the caller's locale header.
func toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var domainErr *apperrors.Error
	switch {
	case errors.As(err, &domainErr):
		return domainErr.ToGRPCStatus(metadata.LocaleFromContext(ctx))
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.New(apperrors.CodeNotFound, err.Error()).ToGRPCStatus(metadata.LocaleFromContext(ctx))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, engine.ErrClosed), errors.Is(err, engine.ErrNotStarted):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, engine.ErrWatcherLagged):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		log.Printf("registry request %s failed: %v", metadata.RequestIDFromContext(ctx), err)
		return status.Error(codes.Internal, "internal registry error")
	}
}
