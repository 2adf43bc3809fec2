package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key addresses domains, subdomains, and pointer records.
type Key = common.Hash

// Identity is an authenticated caller or owner account.
type Identity = common.Address

// SubgraphID references externally stored versioned subgraph content.
type SubgraphID = common.Hash

// MetadataPointer references externally stored descriptive content.
type MetadataPointer = common.Hash

// HashName reduces a human-readable name to its registry key.
func HashName(name string) Key {
	return crypto.Keccak256Hash([]byte(name))
}

// ParseKey parses a 0x-prefixed 32-byte hex value.
func ParseKey(value string) (Key, error) {
	value = strings.TrimSpace(value)
	if !has0xPrefix(value) || len(value) != 2+2*common.HashLength {
		return Key{}, fmt.Errorf("expected 0x-prefixed %d-byte hex, got %q", common.HashLength, value)
	}
	if !isHex(value[2:]) {
		return Key{}, fmt.Errorf("invalid hex value %q", value)
	}
	return common.HexToHash(value), nil
}

// ParseIdentity parses a 0x-prefixed account address.
func ParseIdentity(value string) (Identity, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return Identity{}, fmt.Errorf("invalid account address %q", value)
	}
	return common.HexToAddress(value), nil
}

func has0xPrefix(value string) bool {
	return len(value) >= 2 && value[0] == '0' && (value[1] == 'x' || value[1] == 'X')
}

func isHex(value string) bool {
	for _, c := range []byte(value) {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
