package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useRing(t *testing.T, r keyring.Keyring, err error) {
	t.Helper()
	orig := openRing
	openRing = func() (keyring.Keyring, error) { return r, err }
	t.Cleanup(func() { openRing = orig })
}

func TestSetGetDelete(t *testing.T) {
	useRing(t, keyring.NewArrayKeyring(nil), nil)

	require.NoError(t, Set("me@example.com", "s3cret"))

	pw, err := Get("me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)

	require.NoError(t, Delete("me@example.com"))
	_, err = Get("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMissingEntry(t *testing.T) {
	useRing(t, keyring.NewArrayKeyring([]keyring.Item{{Key: "other@example.com", Data: []byte("x")}}), nil)

	_, err := Get("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetEmptyEntry(t *testing.T) {
	useRing(t, keyring.NewArrayKeyring([]keyring.Item{{Key: "me@example.com"}}), nil)

	_, err := Get("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackendFailureIsNotNotFound(t *testing.T) {
	backendErr := errors.New("dbus: no session bus")
	useRing(t, nil, backendErr)

	_, err := Get("me@example.com")
	assert.ErrorIs(t, err, backendErr)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, Set("me@example.com", "pw"), backendErr)
}

func TestSetRejectsEmptyPassword(t *testing.T) {
	useRing(t, keyring.NewArrayKeyring(nil), nil)
	assert.Error(t, Set("me@example.com", ""))
}
