package api

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/config"
	"github.com/rpupo63/inkwell/errs"
)

const (
	tokenIssuerName = "inkwell"
	tokenSubject    = "admin"
)

// sessionClaims ties a bearer token to the gate epoch it was issued in
type sessionClaims struct {
	Epoch uint64 `json:"epoch"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func newTokenIssuer(c map[string]string) (tokenIssuer, error) {
	key := []byte(config.GetString(c, "SESSION_SIGNING_KEY", ""))
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return tokenIssuer{}, fmt.Errorf("generate session signing key: %w", err)
		}
		log.Warn().Msg("SESSION_SIGNING_KEY not set, sessions end when the server restarts")
	}

	ttl := time.Duration(config.GetInt(c, "SESSION_TTL_HOURS", 24)) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return tokenIssuer{key: key, ttl: ttl, now: time.Now}, nil
}

func (t tokenIssuer) issue(epoch uint64) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := sessionClaims{
		Epoch: epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuerName,
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, errs.NewInternalErrorWithCause("could not sign session token", err)
	}
	return signed, expiresAt, nil
}

func (t tokenIssuer) parse(tokenString string) (sessionClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuerName),
		jwt.WithSubject(tokenSubject),
		jwt.WithTimeFunc(t.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return sessionClaims{}, errs.NewTokenExpiredError()
	}
	if err != nil {
		return sessionClaims{}, errs.NewInvalidTokenError(err)
	}
	return claims, nil
}
