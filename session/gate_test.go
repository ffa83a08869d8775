package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/inkwell/database"
)

func TestFirstLoginBootstrapsCredential(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(database.NewCredentialRepo(database.NewMemoryStore()))

	assert.False(t, gate.IsAdmin())
	exists, err := gate.CredentialExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err := gate.Login(ctx, "first")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, gate.IsAdmin())

	exists, err = gate.CredentialExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	gate.Logout()
	assert.False(t, gate.IsAdmin())

	ok, err = gate.Login(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, gate.IsAdmin())

	ok, err = gate.Login(ctx, "first")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, gate.IsAdmin())
}

func TestFailedLoginKeepsExistingSession(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(database.NewCredentialRepo(database.NewMemoryStore()))
	_, err := gate.Login(ctx, "pw")
	require.NoError(t, err)

	ok, err := gate.Login(ctx, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, gate.IsAdmin(), "a wrong password does not log the admin out")
}

func TestLogoutBumpsEpoch(t *testing.T) {
	gate := NewGate(database.NewCredentialRepo(database.NewMemoryStore()))
	assert.Zero(t, gate.Epoch())

	gate.Logout()
	gate.Logout()
	assert.Equal(t, uint64(2), gate.Epoch())
	assert.False(t, gate.IsAdmin())
}

func TestConcurrentBootstrapSetsOneCredential(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(database.NewCredentialRepo(database.NewMemoryStore()))

	secrets := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	results := make([]bool, len(secrets))
	var wg sync.WaitGroup
	for i, s := range secrets {
		wg.Add(1)
		go func(i int, s string) {
			defer wg.Done()
			ok, err := gate.Login(ctx, s)
			assert.NoError(t, err)
			results[i] = ok
		}(i, s)
	}
	wg.Wait()

	winners := 0
	var winner string
	for i, ok := range results {
		if ok {
			winners++
			winner = secrets[i]
		}
	}
	assert.Equal(t, 1, winners, "only the first login may become the password")

	gate.Logout()
	ok, err := gate.Login(ctx, winner)
	require.NoError(t, err)
	assert.True(t, ok)
}

type brokenCredentials struct{}

func (brokenCredentials) HasCredential(context.Context) (bool, error) {
	return false, errors.New("storage unavailable")
}
func (brokenCredentials) SetCredential(context.Context, string) error { return nil }
func (brokenCredentials) CheckCredential(context.Context, string) (bool, error) {
	return false, nil
}

func TestLoginSurfacesStorageErrors(t *testing.T) {
	gate := NewGate(brokenCredentials{})

	ok, err := gate.Login(context.Background(), "pw")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, gate.IsAdmin())
}
