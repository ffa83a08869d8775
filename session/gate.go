// Package session holds the process-wide admin session state.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CredentialStore is what the gate needs from the credential repository
type CredentialStore interface {
	HasCredential(ctx context.Context) (bool, error)
	SetCredential(ctx context.Context, secret string) error
	CheckCredential(ctx context.Context, secret string) (bool, error)
}

// Gate is the admin session. It starts anonymous; Login authenticates it
// and Logout returns it to anonymous. Nothing about it is persisted.
type Gate struct {
	credentials CredentialStore

	mu            sync.Mutex
	authenticated bool
	// epoch counts logouts; anything issued for an earlier epoch is stale
	epoch  uint64
	logger zerolog.Logger
}

func NewGate(credentials CredentialStore) *Gate {
	return &Gate{
		credentials: credentials,
		logger:      log.With().Str("component", "sessionGate").Logger(),
	}
}

// Login authenticates the session when secret matches the stored credential.
// With no credential stored yet, secret becomes the credential and the
// login succeeds.
func (g *Gate) Login(ctx context.Context, secret string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	exists, err := g.credentials.HasCredential(ctx)
	if err != nil {
		return false, err
	}

	if !exists {
		if err := g.credentials.SetCredential(ctx, secret); err != nil {
			return false, err
		}
		g.authenticated = true
		g.logger.Info().Msg("Admin credential created on first login")
		return true, nil
	}

	ok, err := g.credentials.CheckCredential(ctx, secret)
	if err != nil {
		return false, err
	}
	if !ok {
		g.logger.Warn().Msg("Rejected admin login")
		return false, nil
	}
	g.authenticated = true
	g.logger.Info().Msg("Admin logged in")
	return true, nil
}

// Logout returns the session to anonymous
func (g *Gate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.authenticated = false
	g.epoch++
	g.logger.Info().Uint64("epoch", g.epoch).Msg("Admin logged out")
}

func (g *Gate) IsAdmin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authenticated
}

// Epoch returns the number of logouts so far
func (g *Gate) Epoch() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.epoch
}

// CredentialExists mirrors the credential store, for login screens that
// word first-time setup differently.
func (g *Gate) CredentialExists(ctx context.Context) (bool, error) {
	return g.credentials.HasCredential(ctx)
}
