package api

import (
	"time"

	"github.com/rpupo63/inkwell/models"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	healthHandler   healthHandler
	sessionHandler  sessionHandler
	postHandler     postHandler
	backupHandler   backupHandler
	settingsHandler settingsHandler
	imageHandler    imageHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// HealthResponse reports liveness and uptime
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	StartedAt time.Time `json:"startedAt"`
	Uptime    string    `json:"uptime" example:"1h2m3s"`
}

// LoginRequest carries the admin password
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for admin requests
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionResponse describes the caller's session and whether a password was ever set
type SessionResponse struct {
	IsAdmin          bool `json:"isAdmin"`
	CredentialExists bool `json:"credentialExists"`
}

// PostCollection is the body of GET /posts
type PostCollection struct {
	Posts []models.Post `json:"posts"`
	Total int           `json:"total"`
}

// ImportResponse reports how many posts replaced the collection
type ImportResponse struct {
	Imported int `json:"imported"`
}

// ImageSettingsResponse is the stored image hosting config with its token redacted
type ImageSettingsResponse struct {
	models.ImageConfig
	Configured bool `json:"configured"`
}

// UploadResponse carries the public URL of an uploaded image
type UploadResponse struct {
	URL string `json:"url"`
}

// StatusResponse is a bare acknowledgement
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}
