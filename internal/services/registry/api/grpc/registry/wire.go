package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/gns/internal/platform/errors"
	"github.com/louisbranch/gns/internal/services/registry/domain"
	"github.com/louisbranch/gns/internal/services/registry/journal"
	"google.golang.org/protobuf/types/known/structpb"
)

// Request and response field names.
const (
	FieldDomainName      = "domain_name"
	FieldDomainHash      = "domain_hash"
	FieldSubdomainName   = "subdomain_name"
	FieldSubdomainHash   = "subdomain_hash"
	FieldSubgraphID      = "subgraph_id"
	FieldMetadataPointer = "metadata_pointer"
	FieldOwner           = "owner"
	FieldExists          = "exists"
	FieldEvent           = "event"
	FieldEvents          = "events"
	FieldAfterSeq        = "after_seq"
	FieldPageSize        = "page_size"
	FieldFilter          = "filter"
	FieldNextAfterSeq    = "next_after_seq"
)

func invalidField(field string, cause error) error {
	err := apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid "+field, map[string]string{"Field": field})
	err.Cause = cause
	return err
}

func stringField(in *structpb.Struct, field string) string {
	return strings.TrimSpace(in.GetFields()[field].GetStringValue())
}

func requiredString(in *structpb.Struct, field string) (string, error) {
	value := stringField(in, field)
	if value == "" {
		return "", invalidField(field, fmt.Errorf("%s is required", field))
	}
	return value, nil
}

// nameField reads a name exactly as sent. Names are hashed byte for byte, so
// only a missing or non-string field is rejected.
func nameField(in *structpb.Struct, field string) (string, error) {
	value, ok := in.GetFields()[field]
	if !ok {
		return "", invalidField(field, fmt.Errorf("%s is required", field))
	}
	if _, isString := value.GetKind().(*structpb.Value_StringValue); !isString {
		return "", invalidField(field, fmt.Errorf("%s must be a string", field))
	}
	return value.GetStringValue(), nil
}

func keyField(in *structpb.Struct, field string) (domain.Key, error) {
	raw, err := requiredString(in, field)
	if err != nil {
		return domain.Key{}, err
	}
	key, err := domain.ParseKey(raw)
	if err != nil {
		return domain.Key{}, invalidField(field, err)
	}
	return key, nil
}

// optionalKeyField reads a hash that defaults to zero when absent.
func optionalKeyField(in *structpb.Struct, field string) (domain.Key, error) {
	if stringField(in, field) == "" {
		return domain.Key{}, nil
	}
	return keyField(in, field)
}

func uintField(in *structpb.Struct, field string) (uint64, error) {
	value, ok := in.GetFields()[field]
	if !ok {
		return 0, nil
	}
	n := value.GetNumberValue()
	if n < 0 || n != float64(uint64(n)) {
		return 0, invalidField(field, fmt.Errorf("%s must be a non-negative integer", field))
	}
	return uint64(n), nil
}

// EnvelopeToStruct renders a journal envelope for the wire.
func EnvelopeToStruct(env journal.Envelope) (*structpb.Struct, error) {
	var payload any
	if len(env.PayloadJSON) > 0 {
		if err := json.Unmarshal(env.PayloadJSON, &payload); err != nil {
			return nil, fmt.Errorf("decode event %d payload: %w", env.Seq, err)
		}
	}
	return structpb.NewStruct(map[string]any{
		"seq":              float64(env.Seq),
		"type":             string(env.Type),
		"timestamp":        env.Timestamp.UTC().Format(time.RFC3339Nano),
		"actor_id":         env.ActorID,
		"request_id":       env.RequestID,
		"domain_hash":      env.DomainHash,
		"subdomain_hash":   env.SubdomainHash,
		"payload":          payload,
		"hash":             env.Hash,
		"prev_hash":        env.PrevHash,
		"chain_hash":       env.ChainHash,
		"signature":        env.Signature,
		"signature_key_id": env.SignatureKeyID,
	})
}

// EnvelopeFromStruct restores a journal envelope rendered by EnvelopeToStruct.
func EnvelopeFromStruct(in *structpb.Struct) (journal.Envelope, error) {
	fields := in.GetFields()
	str := func(name string) string { return fields[name].GetStringValue() }

	env := journal.Envelope{
		Seq:            uint64(fields["seq"].GetNumberValue()),
		Type:           domain.EventType(str("type")),
		ActorID:        str("actor_id"),
		RequestID:      str("request_id"),
		DomainHash:     str("domain_hash"),
		SubdomainHash:  str("subdomain_hash"),
		Hash:           str("hash"),
		PrevHash:       str("prev_hash"),
		ChainHash:      str("chain_hash"),
		Signature:      str("signature"),
		SignatureKeyID: str("signature_key_id"),
	}
	if ts := str("timestamp"); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return journal.Envelope{}, fmt.Errorf("parse event timestamp: %w", err)
		}
		env.Timestamp = parsed
	}
	if payload, ok := fields["payload"]; ok {
		if _, isNull := payload.GetKind().(*structpb.Value_NullValue); !isNull {
			data, err := payload.MarshalJSON()
			if err != nil {
				return journal.Envelope{}, fmt.Errorf("encode event payload: %w", err)
			}
			env.PayloadJSON = data
		}
	}
	return env, nil
}
