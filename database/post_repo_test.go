package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestPostRepo(t *testing.T) (*PostRepo, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)}
	repo := NewPostRepo(store)
	repo.now = clock.Now
	return repo, store, clock
}

func ptr[T any](v T) *T {
	return &v
}

func createPost(t *testing.T, repo *PostRepo, title string, status models.Status) models.Post {
	t.Helper()
	post, err := repo.Create(context.Background(), models.PostFields{
		Title:   ptr(title),
		Content: ptr("<p>" + title + " body</p>"),
		Status:  ptr(status),
	})
	require.NoError(t, err)
	return post
}

func ids(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestCreateFillsDefaults(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	ctx := context.Background()

	post, err := repo.Create(ctx, models.PostFields{Title: ptr("Hello"), Content: ptr("<p>World</p>")})
	require.NoError(t, err)

	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, models.StatusPublished, post.Status)
	assert.True(t, strings.HasPrefix(post.Excerpt, "World"))
	assert.Equal(t, "World...", post.Excerpt)
	assert.NotNil(t, post.Tags)
	assert.Empty(t, post.Tags)
	assert.Empty(t, post.CoverImage)
	assert.True(t, post.CreatedAt.Equal(clock.Now()))
	assert.True(t, post.CreatedAt.Equal(post.UpdatedAt))
}

func TestCreateKeepsSuppliedFields(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)

	post, err := repo.Create(context.Background(), models.PostFields{
		Title:      ptr("Tagged"),
		Content:    ptr("<p>x</p>"),
		Excerpt:    ptr("custom"),
		Tags:       ptr([]string{" Go", "go", "Web "}),
		CoverImage: ptr("https://img.test/a.png"),
		Status:     ptr(models.StatusDraft),
	})
	require.NoError(t, err)

	assert.Equal(t, "custom", post.Excerpt)
	assert.Equal(t, []string{"go", "web"}, post.Tags)
	assert.Equal(t, "https://img.test/a.png", post.CoverImage)
	assert.Equal(t, models.StatusDraft, post.Status)
}

func TestCreateRejectsBadFields(t *testing.T) {
	repo, store, _ := newTestPostRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, models.PostFields{Content: ptr("x")})
	assert.True(t, errs.IsMissingRequiredFieldError(err))

	_, err = repo.Create(ctx, models.PostFields{Title: ptr("x")})
	assert.True(t, errs.IsMissingRequiredFieldError(err))

	_, err = repo.Create(ctx, models.PostFields{Title: ptr("x"), Content: ptr("y"), Status: ptr(models.Status("archived"))})
	assert.True(t, errs.IsInvalidFieldError(err))

	_, ok, err := store.Get(ctx, PostsKey)
	require.NoError(t, err)
	assert.False(t, ok, "nothing should be written")
}

func TestCreateAddsExactlyOneNewID(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		before, err := repo.List(ctx, false)
		require.NoError(t, err)

		post := createPost(t, repo, fmt.Sprintf("post %d", i), models.StatusPublished)
		assert.NotContains(t, ids(before), post.ID)

		after, err := repo.List(ctx, false)
		require.NoError(t, err)
		assert.Len(t, after, len(before)+1)
		count := 0
		for _, id := range ids(after) {
			if id == post.ID {
				count++
			}
		}
		assert.Equal(t, 1, count)
		clock.Advance(time.Minute)
	}
}

func TestCreateRetriesTakenID(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	generated := []string{"dup", "dup", "", "fresh"}
	repo.newID = func() string {
		id := generated[0]
		generated = generated[1:]
		return id
	}

	first := createPost(t, repo, "first", models.StatusPublished)
	second := createPost(t, repo, "second", models.StatusPublished)

	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestCreateInsertsAtFront(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	a := createPost(t, repo, "a", models.StatusPublished)
	clock.Advance(time.Second)
	b := createPost(t, repo, "b", models.StatusPublished)

	posts, err := repo.load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, ids(posts))
}

func TestListVisibilityAndOrder(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	ctx := context.Background()

	a := createPost(t, repo, "Hello", models.StatusPublished)
	clock.Advance(time.Second)
	b := createPost(t, repo, "Draft", models.StatusDraft)
	clock.Advance(time.Second)
	c := createPost(t, repo, "Later", models.StatusPublished)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(all))

	published, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID}, ids(published))
	for _, p := range published {
		assert.True(t, p.IsPublished())
	}
}

func TestListSortsImportedOrderByCreatedAt(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()

	payload := `[
		{"id":"old","title":"old","status":"published","createdAt":"2024-01-01T00:00:00.000Z","updatedAt":"2024-01-01T00:00:00.000Z"},
		{"id":"new","title":"new","status":"published","createdAt":"2025-01-01T00:00:00.000Z","updatedAt":"2025-01-01T00:00:00.000Z"}
	]`
	_, err := repo.ImportAll(ctx, []byte(payload))
	require.NoError(t, err)

	posts, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old"}, ids(posts))
}

func TestFindByID(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	draft := createPost(t, repo, "secret", models.StatusDraft)

	found, err := repo.FindByID(ctx, draft.ID, false)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, draft.ID, found.ID)

	hidden, err := repo.FindByID(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.Nil(t, hidden)

	missing, err := repo.FindByID(ctx, "nope", false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateMergesFields(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	ctx := context.Background()
	original := createPost(t, repo, "Title", models.StatusDraft)
	clock.Advance(time.Hour)

	updated, err := repo.Update(ctx, original.ID, models.PostFields{
		Content: ptr("<p>New body</p>"),
		Status:  ptr(models.StatusPublished),
	})
	require.NoError(t, err)

	assert.Equal(t, original.ID, updated.ID)
	assert.True(t, original.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(original.UpdatedAt))
	assert.Equal(t, "Title", updated.Title)
	assert.Equal(t, "New body...", updated.Excerpt)
	assert.Equal(t, models.StatusPublished, updated.Status)

	explicit, err := repo.Update(ctx, original.ID, models.PostFields{Excerpt: ptr("hand written")})
	require.NoError(t, err)
	assert.Equal(t, "hand written", explicit.Excerpt)

	stored, err := repo.FindByID(ctx, original.ID, true)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "hand written", stored.Excerpt)
}

func TestUpdateNeverMovesUpdatedAtBack(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	ctx := context.Background()
	post := createPost(t, repo, "t", models.StatusPublished)

	clock.Advance(-time.Hour)
	updated, err := repo.Update(ctx, post.ID, models.PostFields{Title: ptr("t2")})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(post.UpdatedAt))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestUpdateErrors(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	post := createPost(t, repo, "t", models.StatusPublished)

	_, err := repo.Update(ctx, "missing", models.PostFields{Title: ptr("x")})
	assert.True(t, errs.IsNotFound(err))

	_, err = repo.Update(ctx, post.ID, models.PostFields{Status: ptr(models.Status("gone"))})
	assert.True(t, errs.IsInvalidFieldError(err))
}

func TestDelete(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	keep := createPost(t, repo, "keep", models.StatusPublished)
	drop := createPost(t, repo, "drop", models.StatusPublished)

	require.NoError(t, repo.Delete(ctx, drop.ID))

	found, err := repo.FindByID(ctx, drop.ID, false)
	require.NoError(t, err)
	assert.Nil(t, found)

	posts, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(posts))

	err = repo.Delete(ctx, drop.ID)
	assert.True(t, errs.IsNotFound(err))
}

func TestExportImportRoundTrip(t *testing.T) {
	repo, _, clock := newTestPostRepo(t)
	ctx := context.Background()
	createPost(t, repo, "a", models.StatusPublished)
	clock.Advance(time.Second)
	b := createPost(t, repo, "b", models.StatusDraft)
	clock.Advance(time.Second)
	_, err := repo.Update(ctx, b.ID, models.PostFields{Tags: ptr([]string{"x", "y"})})
	require.NoError(t, err)

	before, err := repo.List(ctx, false)
	require.NoError(t, err)
	exported, err := repo.ExportAll(ctx)
	require.NoError(t, err)

	count, err := repo.ImportAll(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	after, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	again, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(exported), string(again))
}

func TestExportFormat(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()

	empty, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))

	createPost(t, repo, "a", models.StatusPublished)
	out, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "[\n  {\n    \"id\": "))
	assert.Less(t, strings.Index(string(out), `"title"`), strings.Index(string(out), `"updatedAt"`))
	assert.False(t, strings.HasSuffix(string(out), "\n"))
}

func TestExportKeepsMarkupReadable(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, models.PostFields{
		Title:   ptr("Fish & chips"),
		Content: ptr("<p>World &amp; <em>more</em></p>"),
	})
	require.NoError(t, err)

	out, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"content": "<p>World &amp; <em>more</em></p>"`)
	assert.Contains(t, string(out), `"title": "Fish & chips"`)
	assert.NotContains(t, string(out), `\u003c`)
	assert.NotContains(t, string(out), `\u0026`)

	_, err = repo.ImportAll(ctx, out)
	require.NoError(t, err)
	again, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(again))
}

func TestImportRejectsNonArray(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	createPost(t, repo, "keep", models.StatusPublished)
	before, err := repo.ExportAll(ctx)
	require.NoError(t, err)

	for _, payload := range []string{"not-an-array", `{"id":"a"}`, "null", `"[]"`, "", "[1, 2", "42"} {
		_, err := repo.ImportAll(ctx, []byte(payload))
		assert.True(t, errs.IsInvalidFormatError(err), "payload %q", payload)
	}

	after, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestImportValidatesEachRecord(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	createPost(t, repo, "keep", models.StatusPublished)
	before, err := repo.ExportAll(ctx)
	require.NoError(t, err)

	const ts = `"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-02T00:00:00Z"`
	cases := map[string]string{
		"not an object":  `[1]`,
		"missing id":     `[{"title":"t",` + ts + `}]`,
		"empty id":       `[{"id":"","title":"t",` + ts + `}]`,
		"missing title":  `[{"id":"a",` + ts + `}]`,
		"bad status":     `[{"id":"a","title":"t","status":"archived",` + ts + `}]`,
		"missing stamp":  `[{"id":"a","title":"t","createdAt":"2024-01-01T00:00:00Z"}]`,
		"reversed stamp": `[{"id":"a","title":"t","createdAt":"2024-02-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`,
		"duplicate id":   `[{"id":"a","title":"t",` + ts + `},{"id":"a","title":"u",` + ts + `}]`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := repo.ImportAll(ctx, []byte(payload))
			assert.True(t, errs.IsInvalidFormatError(err))
		})
	}

	after, err := repo.ExportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestImportReplacesCollectionAndFillsDefaults(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()
	old := createPost(t, repo, "old", models.StatusPublished)

	count, err := repo.ImportAll(ctx, []byte(`[{"id":"x","title":"X","tags":null,"createdAt":"2024-01-01T00:00:00.000Z","updatedAt":"2024-01-01T00:00:00.000Z"}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	posts, err := repo.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "x", posts[0].ID)
	assert.Equal(t, []string{}, posts[0].Tags)
	assert.Equal(t, models.StatusPublished, posts[0].Status)

	gone, err := repo.FindByID(ctx, old.ID, false)
	require.NoError(t, err)
	assert.Nil(t, gone)

	count, err = repo.ImportAll(ctx, []byte(`[]`))
	require.NoError(t, err)
	assert.Zero(t, count)
	posts, err = repo.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestCorruptPostsRecord(t *testing.T) {
	repo, store, _ := newTestPostRepo(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, PostsKey, []byte(`{"oops"`)))

	_, err := repo.List(ctx, false)
	assert.True(t, errs.IsDatabaseCorruptionError(err))

	_, err = repo.Create(ctx, models.PostFields{Title: ptr("t"), Content: ptr("c")})
	assert.True(t, errs.IsDatabaseCorruptionError(err))
}

type failingStore struct {
	getErr error
	setErr error
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.getErr
}

func (s failingStore) Set(context.Context, string, []byte) error {
	return s.setErr
}

func TestStorageFailuresPropagate(t *testing.T) {
	ctx := context.Background()

	full := NewPostRepo(failingStore{setErr: errors.New("write posts.json: no space left on device")})
	_, err := full.Create(ctx, models.PostFields{Title: ptr("t"), Content: ptr("c")})
	assert.True(t, errs.IsStorageQuotaFullError(err))

	broken := NewPostRepo(failingStore{getErr: errors.New("disk on fire")})
	_, err = broken.List(ctx, false)
	assert.True(t, errs.IsDatabaseQueryError(err))
}

func TestConcurrentCreatesAreNotLost(t *testing.T) {
	repo, _, _ := newTestPostRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, models.PostFields{Title: ptr(fmt.Sprint(i)), Content: ptr("c")})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	posts, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, posts, 20)
}

func TestSearch(t *testing.T) {
	posts := []models.Post{
		{ID: "1", Title: "Go generics", Tags: []string{"golang"}},
		{ID: "2", Title: "Baking", Excerpt: "Sourdough at home..."},
		{ID: "3", Title: "Misc", Tags: []string{"bread"}},
	}

	assert.Equal(t, []string{"1"}, ids(Search(posts, "GENERICS")))
	assert.Equal(t, []string{"2"}, ids(Search(posts, "sourdough")))
	assert.Equal(t, []string{"3"}, ids(Search(posts, "bread")))
	assert.Len(t, Search(posts, ""), 3)
	assert.Empty(t, Search(posts, "rust"))
}

func TestBackupFileName(t *testing.T) {
	assert.Equal(t, "blog-backup-2026-03-01.json", BackupFileName(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)))
}
