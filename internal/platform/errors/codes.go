// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Registry errors
	CodeDomainAlreadyOwned        Code = "DOMAIN_ALREADY_OWNED"
	CodeDomainNotOwner            Code = "DOMAIN_NOT_OWNER"
	CodeSubdomainAlreadyAttached  Code = "SUBDOMAIN_ALREADY_ATTACHED"
	CodeSubdomainNotRegistered    Code = "SUBDOMAIN_NOT_REGISTERED"
	CodeCallerRequired            Code = "CALLER_REQUIRED"
	CodeCommandUnsupported        Code = "COMMAND_UNSUPPORTED"
	CodeInvalidArgument           Code = "INVALID_ARGUMENT"
	CodeJournalIntegrityViolation Code = "JOURNAL_INTEGRITY_VIOLATION"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidArgument,
		CodeCommandUnsupported:
		return codes.InvalidArgument

	// Unauthenticated - no caller identity on the request
	case CodeCallerRequired:
		return codes.Unauthenticated

	// PermissionDenied - caller is not the domain owner
	case CodeDomainNotOwner:
		return codes.PermissionDenied

	// FailedPrecondition - state doesn't allow operation
	case CodeSubdomainNotRegistered:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeDomainAlreadyOwned,
		CodeSubdomainAlreadyAttached:
		return codes.AlreadyExists

	// DataLoss - journal chain or signature mismatch
	case CodeJournalIntegrityViolation:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
