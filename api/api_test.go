package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
	"github.com/rpupo63/inkwell/services"
	"github.com/rpupo63/inkwell/session"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeImageHost struct {
	mu      sync.Mutex
	cfgs    []models.ImageConfig
	uploads []string
	testErr error
}

func (f *fakeImageHost) factory(_ context.Context, cfg models.ImageConfig) (services.ImageHost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfgs = append(f.cfgs, cfg)
	return f, nil
}

func (f *fakeImageHost) IsConfigured() bool { return true }

func (f *fakeImageHost) Upload(_ context.Context, fileName string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, fileName)
	return "https://img.test/uploads/" + fileName, nil
}

func (f *fakeImageHost) TestConnection(context.Context) error { return f.testErr }

type testServer struct {
	handler http.Handler
	db      database.Database
	gate    *session.Gate
	hosts   *fakeImageHost
}

func newTestServer(t *testing.T, cfg map[string]string) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = map[string]string{"LOGIN_RATE_PER_MINUTE": "100"}
	}
	db := database.New(database.NewMemoryStore(), nil)
	gate := session.NewGate(db.CredentialRepo())
	hosts := &fakeImageHost{}
	tokens := tokenIssuer{key: []byte("test-signing-key"), ttl: time.Hour, now: time.Now}

	handler := newRouter(db, gate,
		withConfig(cfg),
		withTokenIssuer(tokens),
		withImageHostFactory(hosts.factory),
		withoutRequestLogging(),
	)
	return &testServer{handler: handler, db: db, gate: gate, hosts: hosts}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/session/login", LoginRequest{Password: password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)
}

func TestLoginBootstrapsThenChecksPassword(t *testing.T) {
	s := newTestServer(t, nil)

	before := decode[SessionResponse](t, s.do(t, http.MethodGet, "/session", nil, ""))
	assert.False(t, before.CredentialExists)
	assert.False(t, before.IsAdmin)

	token := s.login(t, "first-password")

	after := decode[SessionResponse](t, s.do(t, http.MethodGet, "/session", nil, token))
	assert.True(t, after.CredentialExists)
	assert.True(t, after.IsAdmin)

	anonymous := decode[SessionResponse](t, s.do(t, http.MethodGet, "/session", nil, ""))
	assert.False(t, anonymous.IsAdmin)

	wrong := s.do(t, http.MethodPost, "/session/login", LoginRequest{Password: "guess"}, "")
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, "password", decode[ErrorResponse](t, wrong).Field)

	s.login(t, "first-password")
}

func TestLoginRejectsBlankPassword(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/session/login", LoginRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	exists, err := s.gate.CredentialExists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)

	bad := s.do(t, http.MethodPost, "/session/login", "{not json", "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestAdminRoutesRequireCurrentToken(t *testing.T) {
	s := newTestServer(t, nil)
	body := map[string]string{"title": "T", "content": "<p>x</p>"}

	missing := s.do(t, http.MethodPost, "/posts", body, "")
	assert.Equal(t, http.StatusUnauthorized, missing.Code)

	garbage := s.do(t, http.MethodPost, "/posts", body, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, garbage.Code)

	token := s.login(t, "pw")
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/posts", body, token).Code)

	logout := s.do(t, http.MethodPost, "/session/logout", nil, token)
	require.Equal(t, http.StatusOK, logout.Code)
	assert.False(t, s.gate.IsAdmin())

	stale := s.do(t, http.MethodPost, "/posts", body, token)
	assert.Equal(t, http.StatusUnauthorized, stale.Code)

	fresh := s.login(t, "pw")
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/posts", body, fresh).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/posts", body, token).Code)
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "pw")

	created := s.do(t, http.MethodPost, "/posts", map[string]any{
		"title":   "Hello",
		"content": "<p>Hello <b>world</b></p>",
		"tags":    []string{" Go ", "go", "Web"},
		"status":  "draft",
	}, token)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	draft := decode[models.Post](t, created)
	assert.Equal(t, models.StatusDraft, draft.Status)
	assert.Equal(t, []string{"go", "web"}, draft.Tags)
	assert.Equal(t, "Hello world...", draft.Excerpt)

	anonList := decode[PostCollection](t, s.do(t, http.MethodGet, "/posts", nil, ""))
	assert.Equal(t, 0, anonList.Total)
	assert.NotNil(t, anonList.Posts)

	adminList := decode[PostCollection](t, s.do(t, http.MethodGet, "/posts", nil, token))
	require.Equal(t, 1, adminList.Total)
	assert.Equal(t, draft.ID, adminList.Posts[0].ID)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/posts/"+draft.ID, nil, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/posts/"+draft.ID, nil, token).Code)

	updated := s.do(t, http.MethodPut, "/posts/"+draft.ID, map[string]any{"status": "published"}, token)
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())
	assert.Equal(t, "Hello", decode[models.Post](t, updated).Title)

	public := s.do(t, http.MethodGet, "/posts/"+draft.ID, nil, "")
	require.Equal(t, http.StatusOK, public.Code)
	assert.Equal(t, models.StatusPublished, decode[models.Post](t, public).Status)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/posts/"+draft.ID, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/posts/"+draft.ID, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/posts/"+draft.ID, nil, token).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/posts/missing", map[string]any{"title": "x"}, token).Code)
}

func TestPostValidation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "pw")

	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing title", map[string]any{"content": "<p>x</p>"}, "title"},
		{"blank title", map[string]any{"title": "   ", "content": "<p>x</p>"}, "title"},
		{"empty editor", map[string]any{"title": "T", "content": "<p></p>"}, "content"},
		{"missing content", map[string]any{"title": "T"}, "content"},
		{"unknown status", map[string]any{"title": "T", "content": "x", "status": "archived"}, "status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/posts", tc.body, token)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.field, decode[ErrorResponse](t, rec).Field)
		})
	}

	post := decode[models.Post](t, s.do(t, http.MethodPost, "/posts", map[string]any{"title": "T", "content": "x"}, token))
	blank := s.do(t, http.MethodPut, "/posts/"+post.ID, map[string]any{"title": ""}, token)
	assert.Equal(t, http.StatusBadRequest, blank.Code)
}

func TestSearchPosts(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "pw")

	for _, title := range []string{"Learning Go", "Baking bread", "Go concurrency"} {
		rec := s.do(t, http.MethodPost, "/posts", map[string]any{"title": title, "content": "<p>" + title + "</p>"}, token)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	found := decode[PostCollection](t, s.do(t, http.MethodGet, "/posts?q=GO", nil, ""))
	require.Equal(t, 2, found.Total)
	assert.Equal(t, "Go concurrency", found.Posts[0].Title)
	assert.Equal(t, "Learning Go", found.Posts[1].Title)
}

func TestExportImport(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "pw")
	for _, title := range []string{"one", "two"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/posts", map[string]any{"title": title, "content": "x"}, token).Code)
	}

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/export", nil, "").Code)

	export := s.do(t, http.MethodGet, "/export", nil, token)
	require.Equal(t, http.StatusOK, export.Code)
	assert.Regexp(t, `^attachment; filename="blog-backup-\d{4}-\d{2}-\d{2}\.json"$`, export.Header().Get("Content-Disposition"))
	backup := export.Body.String()

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/posts/"+decode[[]models.Post](t, export)[0].ID, nil, token).Code)

	imported := s.do(t, http.MethodPost, "/import", backup, token)
	require.Equal(t, http.StatusOK, imported.Code, imported.Body.String())
	assert.Equal(t, 2, decode[ImportResponse](t, imported).Imported)

	again := s.do(t, http.MethodGet, "/export", nil, token)
	assert.JSONEq(t, backup, again.Body.String())

	invalid := s.do(t, http.MethodPost, "/import", `{"posts":[]}`, token)
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
	assert.Equal(t, 2, decode[PostCollection](t, s.do(t, http.MethodGet, "/posts", nil, token)).Total)
}

func multipartUpload(t *testing.T, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, token, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, fileName, data)
	req := httptest.NewRequest(http.MethodPost, "/images", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestImageSettingsAndUpload(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "pw")

	empty := decode[ImageSettingsResponse](t, s.do(t, http.MethodGet, "/settings/images", nil, token))
	assert.False(t, empty.Configured)

	notConfigured := s.upload(t, token, "a.png", pngHeader)
	assert.Equal(t, http.StatusPreconditionFailed, notConfigured.Code)
	assert.Equal(t, http.StatusPreconditionFailed, s.do(t, http.MethodPost, "/settings/images/test", nil, token).Code)

	saved := s.do(t, http.MethodPut, "/settings/images", models.ImageConfig{Username: "me", Repo: "imgs", Token: "ghp_secret"}, token)
	require.Equal(t, http.StatusOK, saved.Code, saved.Body.String())
	assert.NotContains(t, saved.Body.String(), "ghp_secret")

	got := decode[ImageSettingsResponse](t, s.do(t, http.MethodGet, "/settings/images", nil, token))
	assert.True(t, got.Configured)
	assert.Equal(t, models.RedactedToken, got.Token)
	assert.Equal(t, "main", got.Branch)

	// saving the redacted form back keeps the real token
	got.Branch = "gh-pages"
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/settings/images", got.ImageConfig, token).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/settings/images/test", nil, token).Code)
	require.NotEmpty(t, s.hosts.cfgs)
	assert.Equal(t, "ghp_secret", s.hosts.cfgs[0].Token)
	assert.Equal(t, "gh-pages", s.hosts.cfgs[0].Branch)

	uploaded := s.upload(t, token, "Holiday.PNG", pngHeader)
	require.Equal(t, http.StatusCreated, uploaded.Code, uploaded.Body.String())
	url := decode[UploadResponse](t, uploaded).URL
	assert.Regexp(t, `^https://img\.test/uploads/[0-9a-f-]{36}\.png$`, url)

	notImage := s.upload(t, token, "notes.png", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, notImage.Code)
	assert.Len(t, s.hosts.uploads, 1)

	anon := s.upload(t, "", "a.png", pngHeader)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	badProvider := s.do(t, http.MethodPut, "/settings/images", models.ImageConfig{Provider: "ftp"}, token)
	assert.Equal(t, http.StatusBadRequest, badProvider.Code)
}

func TestImageConnectionFailureIsReported(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.login(t, "pw")
	s.hosts.testErr = errs.NewInvalidAPIKeyError("GitHub")

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/settings/images", models.ImageConfig{Username: "me", Repo: "imgs", Token: "t"}, token).Code)
	rec := s.do(t, http.MethodPost, "/settings/images/test", nil, token)
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Equal(t, "error", decode[ErrorResponse](t, rec).Status)
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, map[string]string{"LOGIN_RATE_PER_MINUTE": "2"})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/session/login", LoginRequest{Password: "pw"}, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/session/login", LoginRequest{Password: "nope"}, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/session/login", LoginRequest{Password: "pw"}, "").Code)

	// other routes are not limited
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/posts", nil, "").Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, map[string]string{"ACCEPTED_ORIGINS": "https://blog.test, https://admin.test"})

	req := httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "https://admin.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://admin.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/posts", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionTokens(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := tokenIssuer{key: []byte("k1"), ttl: time.Hour, now: func() time.Time { return now }}

	token, expiresAt, err := issuer.issue(7)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	claims, err := issuer.parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.Epoch)

	other := issuer
	other.key = []byte("k2")
	_, err = other.parse(token)
	assert.True(t, errs.IsInvalidTokenError(err))

	later := issuer
	later.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = later.parse(token)
	assert.True(t, errs.IsTokenExpiredError(err))
	assert.True(t, errs.IsUnauthorized(err))

	_, err = issuer.parse(strings.Repeat("x", 20))
	assert.True(t, errs.IsInvalidTokenError(err))
}

func TestNewTokenIssuerConfig(t *testing.T) {
	fromEnv, err := newTokenIssuer(map[string]string{"SESSION_SIGNING_KEY": "abc", "SESSION_TTL_HOURS": "2"})
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), fromEnv.key)
	assert.Equal(t, 2*time.Hour, fromEnv.ttl)

	random, err := newTokenIssuer(nil)
	require.NoError(t, err)
	assert.Len(t, random.key, 32)
	assert.Equal(t, 24*time.Hour, random.ttl)
}

func TestRateLimiterForgetsIdleVisitors(t *testing.T) {
	limiter := newIPRateLimiter(1)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"))

	now = now.Add(limiterIdleTTL + 2*time.Minute)
	assert.True(t, limiter.allow("10.0.0.3"))
	assert.Len(t, limiter.visitors, 1)
}
