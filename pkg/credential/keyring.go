// Package credential keeps the mailbox password in the system keyring so
// the config file can leave EMAIL_PASSWORD empty.
package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "inbox-triage"

// ErrNotFound means the keyring works but holds no password for the account.
var ErrNotFound = errors.New("no password stored in keyring")

// openRing is replaced in tests with an in-memory keyring.
var openRing = func() (keyring.Keyring, error) {
	return keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	})
}

func ring() (keyring.Keyring, error) {
	r, err := openRing()
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return r, nil
}

// Get returns the password stored for account, or ErrNotFound.
func Get(account string) (string, error) {
	r, err := ring()
	if err != nil {
		return "", err
	}
	item, err := r.Get(account)
	switch {
	case errors.Is(err, keyring.ErrKeyNotFound):
		return "", fmt.Errorf("%w: %s", ErrNotFound, account)
	case err != nil:
		return "", fmt.Errorf("failed to read keyring entry for %s: %w", account, err)
	case len(item.Data) == 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, account)
	}
	return string(item.Data), nil
}

// Set stores password for account, replacing any previous entry.
func Set(account, password string) error {
	if password == "" {
		return fmt.Errorf("refusing to store an empty password for %s", account)
	}
	r, err := ring()
	if err != nil {
		return err
	}
	err = r.Set(keyring.Item{
		Key:         account,
		Data:        []byte(password),
		Label:       serviceName + ": " + account,
		Description: "IMAP/SMTP password",
	})
	if err != nil {
		return fmt.Errorf("failed to store password for %s: %w", account, err)
	}
	return nil
}

// Delete removes the entry for account. A missing entry is ErrNotFound.
func Delete(account string) error {
	r, err := ring()
	if err != nil {
		return err
	}
	if err := r.Remove(account); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, account)
		}
		return fmt.Errorf("failed to delete password for %s: %w", account, err)
	}
	return nil
}
