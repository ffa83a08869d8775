package services

import (
	"fmt"
	"strings"

	"github.com/rpupo63/inkwell/config"
)

// GetBaseURL returns the public address of the blog front end from
// SITE_BASE_URL, falling back to BASE_URL.
func GetBaseURL(cfg map[string]string) string {
	if baseURL := config.GetString(cfg, "SITE_BASE_URL", ""); baseURL != "" {
		return baseURL
	}
	return config.GetString(cfg, "BASE_URL", "")
}

// BuildPostURL constructs the reader URL of a post
// Parameters:
//   - baseURL: The base URL (e.g., "https://example.com")
//   - postID: The post ID
//
// Returns:
//   - The full post URL (e.g., "https://example.com/post/{postID}"), or "" without a base URL
func BuildPostURL(baseURL, postID string) string {
	if baseURL == "" || postID == "" {
		return ""
	}
	return fmt.Sprintf("%s/post/%s", strings.TrimSuffix(baseURL, "/"), postID)
}
