package journal

import (
	"fmt"

	apperrors "github.com/louisbranch/gns/internal/platform/errors"
)

// Seal assigns seq and integrity fields to env so it follows prev. A zero
// prev starts the journal at seq 1.
func Seal(env Envelope, prev Envelope, keyring *Keyring) (Envelope, error) {
	env.Seq = prev.Seq + 1
	env.PrevHash = prev.ChainHash

	hash, err := EventHash(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("compute event hash: %w", err)
	}
	env.Hash = hash

	chainHash, err := ChainHash(env, env.PrevHash)
	if err != nil {
		return Envelope{}, fmt.Errorf("compute chain hash: %w", err)
	}
	env.ChainHash = chainHash

	signature, keyID, err := keyring.Sign(chainHash)
	if err != nil {
		return Envelope{}, fmt.Errorf("sign chain hash: %w", err)
	}
	env.Signature = signature
	env.SignatureKeyID = keyID
	return env, nil
}

// Verifier checks envelopes one at a time in journal order.
type Verifier struct {
	keyring *Keyring
	prev    Envelope
}

// NewVerifier returns a verifier positioned before the first envelope.
func NewVerifier(keyring *Keyring) *Verifier {
	return &Verifier{keyring: keyring}
}

// Next verifies env as the successor of the previously verified envelope.
func (v *Verifier) Next(env Envelope) error {
	if env.Seq != v.prev.Seq+1 {
		return violation(env.Seq, fmt.Errorf("expected seq %d", v.prev.Seq+1))
	}
	if env.PrevHash != v.prev.ChainHash {
		return violation(env.Seq, fmt.Errorf("prev hash does not match predecessor chain hash"))
	}
	hash, err := EventHash(env)
	if err != nil {
		return violation(env.Seq, err)
	}
	if hash != env.Hash {
		return violation(env.Seq, fmt.Errorf("event hash mismatch"))
	}
	chainHash, err := ChainHash(env, env.PrevHash)
	if err != nil {
		return violation(env.Seq, err)
	}
	if chainHash != env.ChainHash {
		return violation(env.Seq, fmt.Errorf("chain hash mismatch"))
	}
	if err := v.keyring.Verify(env.ChainHash, env.Signature, env.SignatureKeyID); err != nil {
		return violation(env.Seq, err)
	}
	v.prev = env
	return nil
}

// Last returns the most recently verified envelope.
func (v *Verifier) Last() Envelope {
	return v.prev
}

// Verify checks a complete journal from seq 1.
func Verify(envs []Envelope, keyring *Keyring) error {
	verifier := NewVerifier(keyring)
	for _, env := range envs {
		if err := verifier.Next(env); err != nil {
			return err
		}
	}
	return nil
}

func violation(seq uint64, cause error) error {
	return apperrors.Wrap(apperrors.CodeJournalIntegrityViolation, fmt.Sprintf("journal event %d failed verification", seq), cause)
}
