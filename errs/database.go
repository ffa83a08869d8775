package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrDatabaseQuery      = errors.New("database query failed")
	ErrDatabaseConnection = errors.New("database connection failed")
)

// Database & Storage Specific Errors
var (
	ErrStorageQuotaFull   = errors.New("storage quota full")
	ErrDatabaseCorruption = errors.New("database corruption")
)

func NewAlreadyExists(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusConflict,
		err:        fmt.Errorf("%s %w", entity, ErrAlreadyExists),
	}
}

func NewNotFound(entity string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusNotFound,
		err:        fmt.Errorf("%s %w", entity, ErrNotFound),
	}
}

// NewDatabaseError creates a new database error with details about the operation
func NewDatabaseError(operation, entity string, cause error) *ApiErr {
	details := fmt.Sprintf("Failed to %s %s", operation, entity)

	// Errors that already carry a classification pass through untouched
	var apiErr *ApiErr
	if errors.As(cause, &apiErr) {
		return apiErr
	}

	if cause != nil {
		errStr := strings.ToLower(cause.Error())
		switch {
		case strings.Contains(errStr, "no space left"), strings.Contains(errStr, "quota"):
			return &ApiErr{
				StatusCode: http.StatusInsufficientStorage,
				err:        ErrStorageQuotaFull,
				Details:    details,
				Cause:      cause,
			}
		case strings.Contains(errStr, "connection"):
			return &ApiErr{
				StatusCode: http.StatusServiceUnavailable,
				err:        ErrDatabaseConnection,
				Details:    "Unable to connect to database",
				Cause:      cause,
			}
		}
	}

	// Generic database error
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrDatabaseQuery,
		Details:    details,
		Cause:      cause,
	}
}

func NewDatabaseCorruptionError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusInternalServerError,
		err:        ErrDatabaseCorruption,
		Details:    fmt.Sprintf("Database corruption detected during %s", operation),
		Cause:      cause,
		Field:      "corruption",
	}
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsDatabaseQueryError(err error) bool {
	return errors.Is(err, ErrDatabaseQuery)
}

func IsStorageQuotaFullError(err error) bool {
	return errors.Is(err, ErrStorageQuotaFull)
}

func IsDatabaseCorruptionError(err error) bool {
	return errors.Is(err, ErrDatabaseCorruption)
}
