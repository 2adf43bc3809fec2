// Package hmackey generates journal signing keys for the registry.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const minKeyBytes = 16

// Config holds configuration for HMAC key generation.
type Config struct {
	Bytes int
	// KeyID, when set, prints a rotation entry for GNS_EVENT_HMAC_KEYS.
	KeyID string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	fs.StringVar(&cfg.KeyID, "key-id", "", "emit a keyring entry with this key id")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates a key and writes the environment assignment to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < minKeyBytes {
		return fmt.Errorf("bytes must be at least %d", minKeyBytes)
	}
	if out == nil {
		return errors.New("output is required")
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if strings.ContainsAny(keyID, "=,") {
		return errors.New("key id must not contain '=' or ','")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	key := hex.EncodeToString(buf)
	if keyID == "" {
		_, err := fmt.Fprintf(out, "GNS_EVENT_HMAC_KEY=%s\n", key)
		return err
	}
	_, err := fmt.Fprintf(out, "GNS_EVENT_HMAC_KEY_ID=%s\nGNS_EVENT_HMAC_KEYS=%s=%s\n", keyID, keyID, key)
	return err
}
