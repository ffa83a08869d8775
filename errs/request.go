package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	Unauthorized = &ApiErr{StatusCode: http.StatusUnauthorized, err: ErrUnauthorized}
)

// Authentication & Authorization Errors
var (
	ErrMissingToken      = errors.New("missing access token")
	ErrInvalidToken      = errors.New("invalid access token")
	ErrTokenExpired      = errors.New("token expired")
	ErrInvalidCredential = errors.New("invalid credential")
)

func Malformed(payloadName string) *ApiErr {
	return &ApiErr{StatusCode: http.StatusBadRequest, err: sentinelErr{payloadName + " malformed", ErrMalformedPayload}}
}

func BadRequest(message string) *ApiErr {
	return NewBadRequestError(message)
}

// Authentication & Authorization Error Constructors
func NewMissingTokenError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrUnauthorized, ErrMissingToken),
		Details:    "Missing access token",
		Field:      "authorization",
	}
}

func NewInvalidTokenError(cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidToken),
		Details:    "Invalid access token",
		Cause:      cause,
		Field:      "authorization",
	}
}

func NewTokenExpiredError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrUnauthorized, ErrTokenExpired),
		Details:    "Token has expired",
		Field:      "authorization",
	}
}

func NewInvalidCredentialError() *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnauthorized,
		err:        fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidCredential),
		Details:    "Wrong password",
		Field:      "password",
	}
}

// Authentication & Authorization Error Type Checkers
func IsMissingTokenError(err error) bool {
	return errors.Is(err, ErrMissingToken)
}

func IsInvalidTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

func IsInvalidCredentialError(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}
