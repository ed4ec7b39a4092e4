package secret

import (
	"fmt"
	"os"
	"strings"
)

// SecretStore holds credentials kept out of config.toml, such as the
// password of a server database.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	Delete(key string) error
}

// EnvPrefix prefixes the environment variables EnvStore reads.
const EnvPrefix = "CANVASBOARD_SECRET_"

// EnvStore reads secrets from the environment. The key "db-password"
// maps to CANVASBOARD_SECRET_DB_PASSWORD.
type EnvStore struct{}

func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func (EnvStore) Set(key string, value []byte) error {
	return os.Setenv(EnvName(key), string(value))
}

func (EnvStore) Get(key string) ([]byte, error) {
	v, ok := os.LookupEnv(EnvName(key))
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (EnvStore) Delete(key string) error {
	return os.Unsetenv(EnvName(key))
}

// Chain looks a key up in each store in order and returns the first hit.
type Chain []SecretStore

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

// Resolve returns the secret under key, failing when no store has it.
func Resolve(s interface{ Get(string) ([]byte, error) }, key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", fmt.Errorf("read secret %q: %w", key, err)
	}
	if len(v) == 0 {
		return "", fmt.Errorf("secret %q not found (set %s or store it in the keychain)", key, EnvName(key))
	}
	return string(v), nil
}
