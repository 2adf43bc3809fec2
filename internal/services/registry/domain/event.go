package domain

import (
	"encoding/json"
	"fmt"
)

// EventType identifies an emitted registry event.
type EventType string

const (
	// EventDomainClaimed records the first and only owner of a domain.
	EventDomainClaimed EventType = "domain.claimed"
	// EventSubgraphAttached records a subdomain attached under a domain.
	EventSubgraphAttached EventType = "subgraph.attached"
	// EventMetadataChanged records a new metadata pointer for a subdomain record.
	EventMetadataChanged EventType = "subgraph.metadata_changed"
	// EventSubgraphIDChanged records a new subgraph id for an attached subdomain.
	EventSubgraphIDChanged EventType = "subgraph.id_changed"
	// EventSubgraphDeleted records the removal of a subdomain and its pointer record.
	EventSubgraphDeleted EventType = "subgraph.deleted"
	// EventAccountMetadataChanged records an account-level metadata pointer.
	EventAccountMetadataChanged EventType = "account.metadata_changed"
)

// EventTypes lists every event type in declaration order.
func EventTypes() []EventType {
	return []EventType{
		EventDomainClaimed,
		EventSubgraphAttached,
		EventMetadataChanged,
		EventSubgraphIDChanged,
		EventSubgraphDeleted,
		EventAccountMetadataChanged,
	}
}

// Event is one accepted state change.
//
// DomainHash and SubdomainHash address the affected records and are zero when
// the event type does not carry them.
type Event struct {
	Type          EventType
	Caller        Identity
	DomainHash    Key
	SubdomainHash Key
	Payload       Payload
}

// Payload carries the event-specific fields.
type Payload interface {
	EventType() EventType
}

// DomainClaimedPayload carries the owner and the claimed name.
type DomainClaimedPayload struct {
	Owner      Identity `json:"owner"`
	DomainName string   `json:"domain_name"`
}

// SubgraphAttachedPayload carries the initial pointer record.
type SubgraphAttachedPayload struct {
	SubgraphID      SubgraphID      `json:"subgraph_id"`
	SubdomainName   string          `json:"subdomain_name"`
	MetadataPointer MetadataPointer `json:"ipfs_hash"`
}

// MetadataChangedPayload carries the replacement metadata pointer.
type MetadataChangedPayload struct {
	MetadataPointer MetadataPointer `json:"ipfs_hash"`
}

// SubgraphIDChangedPayload carries the replacement subgraph id.
type SubgraphIDChangedPayload struct {
	SubgraphID SubgraphID `json:"subgraph_id"`
}

// SubgraphDeletedPayload has no fields beyond the event addressing.
type SubgraphDeletedPayload struct{}

// AccountMetadataChangedPayload associates an account with a metadata pointer.
type AccountMetadataChangedPayload struct {
	Account         Identity        `json:"account"`
	MetadataPointer MetadataPointer `json:"ipfs_hash"`
}

func (DomainClaimedPayload) EventType() EventType          { return EventDomainClaimed }
func (SubgraphAttachedPayload) EventType() EventType       { return EventSubgraphAttached }
func (MetadataChangedPayload) EventType() EventType        { return EventMetadataChanged }
func (SubgraphIDChangedPayload) EventType() EventType      { return EventSubgraphIDChanged }
func (SubgraphDeletedPayload) EventType() EventType        { return EventSubgraphDeleted }
func (AccountMetadataChangedPayload) EventType() EventType { return EventAccountMetadataChanged }

// DecodePayload restores a typed payload from its JSON form.
func DecodePayload(eventType EventType, data []byte) (Payload, error) {
	var payload Payload
	switch eventType {
	case EventDomainClaimed:
		var p DomainClaimedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		payload = p
	case EventSubgraphAttached:
		var p SubgraphAttachedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		payload = p
	case EventMetadataChanged:
		var p MetadataChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		payload = p
	case EventSubgraphIDChanged:
		var p SubgraphIDChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		payload = p
	case EventSubgraphDeleted:
		payload = SubgraphDeletedPayload{}
	case EventAccountMetadataChanged:
		var p AccountMetadataChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		payload = p
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	return payload, nil
}

// EncodePayload returns the canonical JSON form of an event payload.
func EncodePayload(payload Payload) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("event payload is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", payload.EventType(), err)
	}
	return data, nil
}
