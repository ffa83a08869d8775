package models

import "strings"

// Image hosting providers
const (
	ImageProviderGitHub = "github"
	ImageProviderS3     = "s3"
)

const (
	DefaultImageBranch = "main"
	RedactedToken      = "********"
)

// ImageConfig holds the settings of the image hosting collaborator
type ImageConfig struct {
	Provider      string `json:"provider"`
	Username      string `json:"username,omitempty"`
	Repo          string `json:"repo,omitempty"`
	Token         string `json:"token,omitempty"`
	Branch        string `json:"branch,omitempty"`
	Bucket        string `json:"bucket,omitempty"`
	Region        string `json:"region,omitempty"`
	PublicBaseURL string `json:"publicBaseUrl,omitempty"`
}

// Normalize trims every field and fills defaults. Configs saved by older
// clients carry no provider and are GitHub configs.
func (c ImageConfig) Normalize() ImageConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ImageProviderGitHub
	}
	c.Username = strings.TrimSpace(c.Username)
	c.Repo = strings.TrimSpace(c.Repo)
	c.Token = strings.TrimSpace(c.Token)
	c.Branch = strings.TrimSpace(c.Branch)
	if c.Provider == ImageProviderGitHub && c.Branch == "" {
		c.Branch = DefaultImageBranch
	}
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	c.PublicBaseURL = strings.TrimSuffix(strings.TrimSpace(c.PublicBaseURL), "/")
	return c
}

// IsComplete reports whether every field the provider needs is set
func (c ImageConfig) IsComplete() bool {
	switch c.Provider {
	case ImageProviderGitHub, "":
		return c.Username != "" && c.Repo != "" && c.Token != ""
	case ImageProviderS3:
		return c.Bucket != ""
	default:
		return false
	}
}

// Redacted hides the access token
func (c ImageConfig) Redacted() ImageConfig {
	if c.Token != "" {
		c.Token = RedactedToken
	}
	return c
}
