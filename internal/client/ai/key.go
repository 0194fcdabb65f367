package ai

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// The API key lives in a single well-known file under the user's config
// directory. The client reads it at startup and overwrites it when the
// user supplies a new key.
const (
	configDirName = "quicknotes"
	keyFileName   = "openai_api_key"
)

func keyPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, configDirName, keyFileName), nil
}

// LoadAPIKey returns the stored key, or "" when none has been saved.
func LoadAPIKey() (string, error) {
	path, err := keyPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveAPIKey overwrites the stored key.
func SaveAPIKey(key string) error {
	path, err := keyPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(key)+"\n"), 0o600)
}
