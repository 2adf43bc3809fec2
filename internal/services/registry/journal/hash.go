package journal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventHash computes the content hash of an envelope.
//
// The hash covers every field except Seq and the integrity fields, so the
// same event content hashes identically wherever it lands in the journal.
func EventHash(env Envelope) (string, error) {
	if strings.TrimSpace(string(env.Type)) == "" {
		return "", fmt.Errorf("event type is required")
	}
	if env.Timestamp.IsZero() {
		return "", fmt.Errorf("event timestamp is required")
	}
	payload, err := canonicalPayload(env.PayloadJSON)
	if err != nil {
		return "", err
	}
	return canonicalHash(map[string]any{
		"type":           string(env.Type),
		"timestamp":      env.Timestamp.UTC().Format(time.RFC3339Nano),
		"actor_id":       env.ActorID,
		"request_id":     env.RequestID,
		"domain_hash":    env.DomainHash,
		"subdomain_hash": env.SubdomainHash,
		"payload":        payload,
	})
}

// ChainHash computes the hash that links an envelope to its predecessor.
func ChainHash(env Envelope, prevHash string) (string, error) {
	if env.Seq == 0 {
		return "", fmt.Errorf("event seq is required")
	}
	if strings.TrimSpace(env.Hash) == "" {
		return "", fmt.Errorf("event hash is required")
	}
	return canonicalHash(map[string]any{
		"seq":        env.Seq,
		"event_hash": env.Hash,
		"prev_hash":  prevHash,
	})
}

func canonicalHash(fields map[string]any) (string, error) {
	// encoding/json writes map keys in sorted order.
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("canonical encode: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalPayload decodes payload so that it re-encodes with sorted keys
// regardless of the field order it was written with.
func canonicalPayload(payload []byte) (any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return value, nil
}
