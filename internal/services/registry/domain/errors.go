package domain

import apperrors "github.com/louisbranch/gns/internal/platform/errors"

var (
	// ErrAlreadyOwned indicates the domain hash already has an owner.
	ErrAlreadyOwned = apperrors.New(apperrors.CodeDomainAlreadyOwned, "domain is already owned")
	// ErrNotOwner indicates the caller does not own the parent domain.
	ErrNotOwner = apperrors.New(apperrors.CodeDomainNotOwner, "only the domain owner can call")
	// ErrAlreadyAttached indicates the subdomain already carries a subgraph.
	ErrAlreadyAttached = apperrors.New(apperrors.CodeSubdomainAlreadyAttached, "subdomain is already attached")
	// ErrSubdomainNotRegistered indicates the subdomain was never attached or was deleted.
	ErrSubdomainNotRegistered = apperrors.New(apperrors.CodeSubdomainNotRegistered, "subdomain is not registered")
	// ErrCallerRequired indicates a zero caller identity.
	ErrCallerRequired = apperrors.New(apperrors.CodeCallerRequired, "caller identity is required")
	// ErrCommandUnsupported indicates an unknown command type.
	ErrCommandUnsupported = apperrors.New(apperrors.CodeCommandUnsupported, "command type is not supported")
)
