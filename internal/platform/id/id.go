// Package id generates compact random identifiers for requests.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID returns a random version 4 UUID encoded as 26 lowercase base32
// characters.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return strings.ToLower(encoding.EncodeToString(u[:])), nil
}

// Parse decodes an identifier produced by NewID.
func Parse(value string) (uuid.UUID, error) {
	raw, err := encoding.DecodeString(strings.ToUpper(strings.TrimSpace(value)))
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("decode id: %w", err)
	}
	return uuid.FromBytes(raw)
}
