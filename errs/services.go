package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Third-Party API Specific Errors
var (
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrUpstreamRejected   = errors.New("upstream rejected request")
)

// Configuration & Environment Errors
var (
	ErrConfigMissing = errors.New("configuration missing")
	ErrConfigInvalid = errors.New("configuration invalid")
)

func NewConfigMissingError(configName string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusPreconditionFailed,
		err:        ErrConfigMissing,
		Details:    fmt.Sprintf("%s is not configured", configName),
		Field:      "config",
	}
}

func NewConfigError(configName string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrConfigInvalid,
		Details:    fmt.Sprintf("Invalid configuration: %s", configName),
		Cause:      cause,
		Field:      "config",
	}
}

func NewInvalidAPIKeyError(service string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrInvalidAPIKey,
		Details:    fmt.Sprintf("%s rejected the configured credentials", service),
		Field:      "token",
	}
}

func NewServiceUnreachableError(service string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrServiceUnavailable,
		Details:    fmt.Sprintf("Could not reach %s", service),
		Cause:      cause,
	}
}

func NewUpstreamError(service string, status int, message string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrUpstreamRejected,
		Details:    fmt.Sprintf("%s error (status %d): %s", service, status, message),
	}
}

func IsConfigMissingError(err error) bool {
	return errors.Is(err, ErrConfigMissing)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

func IsInvalidAPIKeyError(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}

func IsServiceUnavailableError(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstreamRejected)
}
