package journal

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// RegistryJournal is the journal every registry keyring signs for unless
// ForJournal says otherwise.
const RegistryJournal = "registry"

var (
	// ErrUnknownSigningKey reports a signature made by a key the ring lacks.
	ErrUnknownSigningKey = errors.New("unknown signing key")
	// ErrSignatureMismatch reports a signature that does not cover the chain hash.
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Keyring signs and checks chain hashes for a single journal.
//
// Each root secret is expanded into a journal-scoped key when the ring is
// built; the root secrets themselves are not retained.
type Keyring struct {
	journal string
	signer  string
	scoped  map[string][]byte
}

// KeyringOption adjusts a keyring under construction.
type KeyringOption func(*Keyring)

// ForJournal scopes the keyring to journal instead of RegistryJournal.
func ForJournal(journal string) KeyringOption {
	return func(k *Keyring) {
		k.journal = strings.TrimSpace(journal)
	}
}

// NewKeyring scopes secrets to the journal. New signatures use the key named
// signer; every other key stays valid for verification so old events survive
// rotation.
func NewKeyring(secrets map[string][]byte, signer string, opts ...KeyringOption) (*Keyring, error) {
	ring := &Keyring{
		journal: RegistryJournal,
		signer:  strings.TrimSpace(signer),
		scoped:  make(map[string][]byte, len(secrets)),
	}
	for _, opt := range opts {
		opt(ring)
	}
	switch {
	case len(secrets) == 0:
		return nil, errors.New("hmac keys are required")
	case ring.signer == "":
		return nil, errors.New("signing key id is required")
	case ring.journal == "":
		return nil, errors.New("journal id is required")
	}
	if _, ok := secrets[ring.signer]; !ok {
		return nil, fmt.Errorf("signing key id %q is not configured", ring.signer)
	}

	for id, secret := range secrets {
		if len(secret) == 0 {
			return nil, fmt.Errorf("hmac key %q is empty", id)
		}
		key, err := hkdf.Key(sha256.New, secret, nil, "journal:"+ring.journal, sha256.Size)
		if err != nil {
			return nil, fmt.Errorf("derive key %q: %w", id, err)
		}
		ring.scoped[id] = key
	}
	return ring, nil
}

// Journal names the journal the keys are scoped to.
func (k *Keyring) Journal() string {
	if k == nil {
		return ""
	}
	return k.journal
}

// ActiveKeyID returns the id carried by new signatures.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.signer
}

// Sign returns the hex signature of chainHash and the id of the key used.
func (k *Keyring) Sign(chainHash string) (signature, keyID string, err error) {
	if k == nil {
		return "", "", errors.New("hmac keyring is not configured")
	}
	return hex.EncodeToString(mac(k.scoped[k.signer], chainHash)), k.signer, nil
}

// Verify checks that signature covers chainHash under the key named keyID.
func (k *Keyring) Verify(chainHash, signature, keyID string) error {
	if k == nil {
		return errors.New("hmac keyring is not configured")
	}
	key, ok := k.scoped[strings.TrimSpace(keyID)]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownSigningKey, keyID)
	}
	got, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(got, mac(key, chainHash)) {
		return ErrSignatureMismatch
	}
	return nil
}

func mac(key []byte, value string) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(value))
	return h.Sum(nil)
}
