package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/louisbranch/gns/internal/services/registry/domain"
)

// Envelope is the persisted form of one accepted registry event.
type Envelope struct {
	Seq            uint64
	Type           domain.EventType
	Timestamp      time.Time
	ActorID        string
	RequestID      string
	DomainHash     string
	SubdomainHash  string
	PayloadJSON    []byte
	Hash           string
	PrevHash       string
	ChainHash      string
	Signature      string
	SignatureKeyID string
}

// FromEvent builds an unsealed envelope for evt. Seq and the integrity fields
// are assigned when the envelope is appended.
func FromEvent(evt domain.Event, timestamp time.Time, requestID string) (Envelope, error) {
	payload, err := domain.EncodePayload(evt.Payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:          evt.Type,
		Timestamp:     timestamp.UTC().Truncate(time.Millisecond),
		ActorID:       strings.ToLower(evt.Caller.Hex()),
		RequestID:     strings.TrimSpace(requestID),
		DomainHash:    hashHex(evt.DomainHash),
		SubdomainHash: hashHex(evt.SubdomainHash),
		PayloadJSON:   payload,
	}, nil
}

// Event decodes the envelope back into a domain event.
func (e Envelope) Event() (domain.Event, error) {
	payload, err := domain.DecodePayload(e.Type, e.PayloadJSON)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %d: %w", e.Seq, err)
	}
	caller, err := domain.ParseIdentity(e.ActorID)
	if err != nil {
		return domain.Event{}, fmt.Errorf("event %d actor: %w", e.Seq, err)
	}
	evt := domain.Event{Type: e.Type, Caller: caller, Payload: payload}
	if evt.DomainHash, err = parseOptionalKey(e.DomainHash); err != nil {
		return domain.Event{}, fmt.Errorf("event %d domain hash: %w", e.Seq, err)
	}
	if evt.SubdomainHash, err = parseOptionalKey(e.SubdomainHash); err != nil {
		return domain.Event{}, fmt.Errorf("event %d subdomain hash: %w", e.Seq, err)
	}
	return evt, nil
}

func hashHex(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

func parseOptionalKey(value string) (domain.Key, error) {
	if value == "" {
		return domain.Key{}, nil
	}
	return domain.ParseKey(value)
}
