package database

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpupo63/inkwell/errs"
)

const (
	credentialAlgorithmBcrypt = "bcrypt"
	// MaxSecretLength is the longest secret bcrypt can hash without truncating
	MaxSecretLength = 72
)

type credentialRecord struct {
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
}

// storedCredential is a decoded credential record. Records written by the
// browser edition hold the plaintext secret; those are upgraded to bcrypt
// on the first successful check.
type storedCredential struct {
	hash      []byte
	plaintext string
}

func (c storedCredential) legacy() bool {
	return c.hash == nil
}

// CredentialRepo holds the single admin secret
type CredentialRepo struct {
	store  Store
	mu     sync.Mutex
	cost   int
	logger zerolog.Logger
}

func NewCredentialRepo(store Store) *CredentialRepo {
	return &CredentialRepo{
		store:  store,
		cost:   bcrypt.DefaultCost,
		logger: log.With().Str("repoName", "credentialRepo").Logger(),
	}
}

func (r *CredentialRepo) load(ctx context.Context) (storedCredential, bool, error) {
	data, ok, err := r.store.Get(ctx, CredentialKey)
	if err != nil {
		return storedCredential{}, false, errs.NewDatabaseError("load", "credential", err)
	}
	if !ok || len(data) == 0 {
		return storedCredential{}, false, nil
	}

	cred, err := decodeCredential(data)
	if err != nil {
		return storedCredential{}, false, errs.NewDatabaseCorruptionError("load credential", err)
	}
	return cred, true, nil
}

func decodeCredential(data []byte) (storedCredential, error) {
	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Algorithm == "" {
		// raw value as the browser edition stored it
		return storedCredential{plaintext: string(data)}, nil
	}
	if rec.Algorithm != credentialAlgorithmBcrypt || rec.Hash == "" {
		return storedCredential{}, fmt.Errorf("unsupported credential algorithm %q", rec.Algorithm)
	}
	return storedCredential{hash: []byte(rec.Hash)}, nil
}

// HasCredential reports whether a secret has ever been set
func (r *CredentialRepo) HasCredential(ctx context.Context) (bool, error) {
	_, ok, err := r.load(ctx)
	return ok, err
}

// SetCredential hashes secret and stores it, replacing any previous secret
func (r *CredentialRepo) SetCredential(ctx context.Context, secret string) error {
	if secret == "" {
		return errs.NewMissingRequiredFieldError("password")
	}
	if len(secret) > MaxSecretLength {
		return errs.NewInvalidFieldError("password", fmt.Sprintf("must be at most %d bytes", MaxSecretLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), r.cost)
	if err != nil {
		return errs.NewInternalErrorWithCause("failed to hash credential", err)
	}
	data, err := json.Marshal(credentialRecord{Algorithm: credentialAlgorithmBcrypt, Hash: string(hash)})
	if err != nil {
		return errs.NewInternalErrorWithCause("failed to encode credential", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Set(ctx, CredentialKey, data); err != nil {
		return errs.NewDatabaseError("save", "credential", err)
	}

	r.logger.Info().Msg("Admin credential stored")
	return nil
}

// CheckCredential reports whether secret matches the stored one. It is
// false, without an error, when no secret is set.
func (r *CredentialRepo) CheckCredential(ctx context.Context, secret string) (bool, error) {
	cred, ok, err := r.load(ctx)
	if err != nil || !ok {
		return false, err
	}

	if !cred.legacy() {
		if len(secret) > MaxSecretLength {
			return false, nil
		}
		err := bcrypt.CompareHashAndPassword(cred.hash, []byte(secret))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, errs.NewDatabaseCorruptionError("check credential", err)
		}
		return true, nil
	}

	if subtle.ConstantTimeCompare([]byte(cred.plaintext), []byte(secret)) != 1 {
		return false, nil
	}
	if err := r.SetCredential(ctx, secret); err != nil {
		// the check itself succeeded; the upgrade is retried on the next login
		r.logger.Warn().Err(err).Msg("Failed to upgrade plaintext credential")
	} else {
		r.logger.Info().Msg("Upgraded plaintext credential to bcrypt")
	}
	return true, nil
}
