package secrets

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/detectiq/workbench/internal/domain"
)

// service is the keyring service name, shared with the platform's Python
// settings manager so both sides read the same entries.
const service = "detectiq"

// Keyring implements domain.SecretStore on the OS credential store.
type Keyring struct{}

// NewKeyring creates a Keyring store.
func NewKeyring() *Keyring { return &Keyring{} }

// Get reads a secret. Missing entries map to domain.ErrSecretNotFound.
func (k *Keyring) Get(ref domain.SecretRef) (string, error) {
	value, err := keyring.Get(service, ref.Key())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", domain.ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", ref.Key(), err)
	}
	return value, nil
}

// Set stores a secret.
func (k *Keyring) Set(ref domain.SecretRef, value string) error {
	if err := keyring.Set(service, ref.Key(), value); err != nil {
		return fmt.Errorf("keyring set %s: %w", ref.Key(), err)
	}
	return nil
}

// Delete removes a secret. Deleting an absent entry is not an error.
func (k *Keyring) Delete(ref domain.SecretRef) error {
	err := keyring.Delete(service, ref.Key())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("keyring delete %s: %w", ref.Key(), err)
	}
	return nil
}
