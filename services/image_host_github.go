package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

const gitHubAPI = "https://api.github.com"

// GitHubContentsRequest is the body of a contents API file upload
type GitHubContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
}

// GitHubContentsResponse represents the response from the contents API when creating a file
type GitHubContentsResponse struct {
	Content struct {
		Name        string `json:"name"`
		Path        string `json:"path"`
		DownloadURL string `json:"download_url"`
	} `json:"content"`
}

// GitHubErrorResponse represents an error response from the GitHub API
type GitHubErrorResponse struct {
	Message string `json:"message"`
}

// GitHubImageHost commits uploads into a GitHub repository through the contents API
type GitHubImageHost struct {
	cfg     models.ImageConfig
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewGitHubImageHost(cfg models.ImageConfig) *GitHubImageHost {
	return &GitHubImageHost{
		cfg:     cfg.Normalize(),
		baseURL: gitHubAPI,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  log.With().Str("serviceName", "githubImageHost").Logger(),
	}
}

func (h *GitHubImageHost) IsConfigured() bool {
	return h.cfg.Username != "" && h.cfg.Repo != "" && h.cfg.Token != ""
}

func (h *GitHubImageHost) repoURL() string {
	return fmt.Sprintf("%s/repos/%s/%s", h.baseURL, url.PathEscape(h.cfg.Username), url.PathEscape(h.cfg.Repo))
}

func (h *GitHubImageHost) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub API request: %w", err)
	}
	req.Header.Set("Authorization", "token "+h.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Upload commits data as uploads/<fileName> and returns its raw download URL
func (h *GitHubImageHost) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	if !h.IsConfigured() {
		return "", errNotConfigured()
	}

	payload, err := json.Marshal(GitHubContentsRequest{
		Message: "Upload image: " + fileName,
		Content: base64.StdEncoding.EncodeToString(data),
		Branch:  h.cfg.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal GitHub payload: %w", err)
	}

	target := fmt.Sprintf("%s/contents/%s/%s", h.repoURL(), ImagesDir, url.PathEscape(fileName))
	req, err := h.newRequest(ctx, http.MethodPut, target, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	bodyBytes, status, err := h.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", gitHubError(status, bodyBytes, "Failed to upload image")
	}

	var created GitHubContentsResponse
	if err := json.Unmarshal(bodyBytes, &created); err != nil || created.Content.DownloadURL == "" {
		return "", errs.NewUpstreamError("GitHub", status, "response carried no download URL")
	}

	h.logger.Info().Str("path", created.Content.Path).Msg("Uploaded image to GitHub")
	return created.Content.DownloadURL, nil
}

// TestConnection checks that the token can see the repository
func (h *GitHubImageHost) TestConnection(ctx context.Context) error {
	if !h.IsConfigured() {
		return errNotConfigured()
	}

	req, err := h.newRequest(ctx, http.MethodGet, h.repoURL(), nil)
	if err != nil {
		return err
	}
	bodyBytes, status, err := h.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return gitHubError(status, bodyBytes, "Cannot connect. Check your settings.")
	}
	return nil
}

func (h *GitHubImageHost) do(req *http.Request) ([]byte, int, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, 0, errs.NewServiceUnreachableError("GitHub", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errs.NewServiceUnreachableError("GitHub", err)
	}
	return bodyBytes, resp.StatusCode, nil
}

func gitHubError(status int, body []byte, fallback string) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return errs.NewInvalidAPIKeyError("GitHub")
	}
	var errorResp GitHubErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Message != "" {
		return errs.NewUpstreamError("GitHub", status, errorResp.Message)
	}
	return errs.NewUpstreamError("GitHub", status, fallback)
}
