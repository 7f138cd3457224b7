package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadMasterKey returns envKey when set, otherwise the key stored at path.
// A missing key file yields an empty key and no error.
func LoadMasterKey(envKey, path string) (string, error) {
	if key := strings.TrimSpace(envKey); key != "" {
		return key, nil
	}
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read master key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveMasterKey writes key to path with owner-only permissions.
func SaveMasterKey(path, key string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(key+"\n"), 0600)
}
