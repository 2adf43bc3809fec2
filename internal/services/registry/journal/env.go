package journal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/gns/internal/platform/config"
)

const defaultKeyID = "v1"

// keyringEnv is the environment contract for journal signing keys.
//
// Keys carries id=secret pairs for rotation and takes precedence over Key,
// which is registered under KeyID on its own.
type keyringEnv struct {
	Keys  map[string]string `env:"GNS_EVENT_HMAC_KEYS" envSeparator:"," envKeyValSeparator:"="`
	Key   string            `env:"GNS_EVENT_HMAC_KEY"`
	KeyID string            `env:"GNS_EVENT_HMAC_KEY_ID"`
}

// KeyringFromEnv builds the registry journal keyring from the process
// environment.
func KeyringFromEnv() (*Keyring, error) {
	var cfg keyringEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}
	return cfg.keyring()
}

func (cfg keyringEnv) keyring() (*Keyring, error) {
	signer := strings.TrimSpace(cfg.KeyID)
	if signer == "" {
		signer = defaultKeyID
	}

	secrets := make(map[string][]byte, len(cfg.Keys))
	for id, secret := range cfg.Keys {
		id, secret = strings.TrimSpace(id), strings.TrimSpace(secret)
		if id == "" || secret == "" {
			return nil, fmt.Errorf("GNS_EVENT_HMAC_KEYS entry %q needs an id and a secret", id)
		}
		secrets[id] = []byte(secret)
	}
	if len(secrets) == 0 {
		secret := strings.TrimSpace(cfg.Key)
		if secret == "" {
			return nil, errors.New("GNS_EVENT_HMAC_KEY or GNS_EVENT_HMAC_KEYS is required")
		}
		secrets[signer] = []byte(secret)
	}
	return NewKeyring(secrets, signer)
}
