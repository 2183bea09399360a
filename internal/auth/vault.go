// Package auth keeps secrets and per-site browser sessions in the OS
// keyring, falling back to files under the home directory where no keyring
// is available.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "dealcrawl"
	// FallbackDir is the directory for file-based storage (when keyring fails)
	FallbackDir = ".dealcrawl/credentials"
	// OpenAIKey names the stored OpenAI API key
	OpenAIKey = "openai_api_key"
)

// ErrNotFound is returned when nothing is stored under a name
var ErrNotFound = errors.New("credential not found")

// Vault stores named secrets
type Vault struct {
	useFile bool
	dir     string
}

var (
	detectOnce sync.Once
	detected   bool
)

// useFileBasedStorage reports whether the keyring is unusable here. This is
// a fallback for environments without a keyring (Codespaces, CI).
func useFileBasedStorage() bool {
	detectOnce.Do(func() {
		if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
			detected = true
			return
		}
		testKey := "_test_keyring_access_"
		if err := keyring.Set(KeyringService, testKey, "test"); err != nil {
			detected = true
			return
		}
		_ = keyring.Delete(KeyringService, testKey)
	})
	return detected
}

// NewVault picks the keyring when it works and the fallback directory
// otherwise
func NewVault() (*Vault, error) {
	if !useFileBasedStorage() {
		return &Vault{}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return NewFileVault(filepath.Join(home, FallbackDir)), nil
}

// NewKeyringVault always uses the OS keyring
func NewKeyringVault() *Vault {
	return &Vault{}
}

// NewFileVault stores secrets as files in dir
func NewFileVault(dir string) *Vault {
	return &Vault{useFile: true, dir: dir}
}

// Backend names where secrets go
func (v *Vault) Backend() string {
	if v.useFile {
		return "file"
	}
	return "keyring"
}

// Set stores value under name
func (v *Vault) Set(name, value string) error {
	if name == "" {
		return fmt.Errorf("credential name cannot be empty")
	}
	if v.useFile {
		path, err := v.path(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(value), 0600); err != nil {
			return fmt.Errorf("failed to save credential file: %w", err)
		}
		return nil
	}
	if err := keyring.Set(KeyringService, name, value); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// Get loads the value stored under name
func (v *Vault) Get(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("credential name cannot be empty")
	}
	if v.useFile {
		path, err := v.path(name)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to load credential file: %w", err)
		}
		return string(data), nil
	}
	value, err := keyring.Get(KeyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load from keyring: %w", err)
	}
	return value, nil
}

// Delete removes name. Deleting a missing name is not an error.
func (v *Vault) Delete(name string) error {
	if v.useFile {
		path, err := v.path(name)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete credential file: %w", err)
		}
		return nil
	}
	err := keyring.Delete(KeyringService, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (v *Vault) path(name string) (string, error) {
	if err := os.MkdirAll(v.dir, 0700); err != nil {
		return "", err
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	return filepath.Join(v.dir, safe), nil
}
