package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

const postEntity = "post"

// PostRepo owns the posts record. Every operation loads the whole collection
// and mutations write it back in one Set.
type PostRepo struct {
	store Store
	// serializes load-mutate-save cycles within this process
	mu     sync.Mutex
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
}

func NewPostRepo(store Store) *PostRepo {
	return &PostRepo{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.With().Str("repoName", "postRepo").Logger(),
	}
}

// timestamp returns the current time as stored: UTC, millisecond precision
func (r *PostRepo) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *PostRepo) load(ctx context.Context) ([]models.Post, error) {
	data, ok, err := r.store.Get(ctx, PostsKey)
	if err != nil {
		return nil, errs.NewDatabaseError("load", "posts", err)
	}
	if !ok || len(bytes.TrimSpace(data)) == 0 {
		return []models.Post{}, nil
	}

	var posts []models.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, errs.NewDatabaseCorruptionError("load posts", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

func (r *PostRepo) save(ctx context.Context, posts []models.Post) error {
	data, err := json.Marshal(posts)
	if err != nil {
		return errs.NewInternalErrorWithCause("failed to encode posts", err)
	}
	if err := r.store.Set(ctx, PostsKey, data); err != nil {
		return errs.NewDatabaseError("save", "posts", err)
	}
	return nil
}

// List returns a snapshot of the posts, newest first. With publishedOnly
// set, drafts are left out.
func (r *PostRepo) List(ctx context.Context, publishedOnly bool) ([]models.Post, error) {
	posts, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if publishedOnly && !p.IsPublished() {
			continue
		}
		out = append(out, p.Clone())
	}
	models.SortNewestFirst(out)
	return out, nil
}

// FindByID returns the post with the given id, or nil when there is none.
// Drafts read as absent when publishedOnly is set.
func (r *PostRepo) FindByID(ctx context.Context, id string, publishedOnly bool) (*models.Post, error) {
	posts, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range posts {
		if p.ID != id {
			continue
		}
		if publishedOnly && !p.IsPublished() {
			return nil, nil
		}
		found := p.Clone()
		return &found, nil
	}
	return nil, nil
}

// Create stores a new post at the front of the collection
func (r *PostRepo) Create(ctx context.Context, fields models.PostFields) (models.Post, error) {
	if fields.Title == nil {
		return models.Post{}, errs.NewMissingRequiredFieldError("title")
	}
	if fields.Content == nil {
		return models.Post{}, errs.NewMissingRequiredFieldError("content")
	}
	status := models.StatusPublished
	if fields.Status != nil {
		status = *fields.Status
	}
	if !status.Valid() {
		return models.Post{}, errs.NewInvalidFieldError("status", fmt.Sprintf("unknown status %q", status))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load(ctx)
	if err != nil {
		return models.Post{}, err
	}

	now := r.timestamp()
	post := models.Post{
		ID:        r.uniqueID(posts),
		Title:     *fields.Title,
		Content:   *fields.Content,
		Tags:      []string{},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fields.Excerpt != nil {
		post.Excerpt = *fields.Excerpt
	} else {
		post.Excerpt = models.BuildExcerpt(post.Content)
	}
	if fields.Tags != nil {
		post.Tags = models.NormalizeTags(*fields.Tags)
	}
	if fields.CoverImage != nil {
		post.CoverImage = *fields.CoverImage
	}

	posts = append([]models.Post{post}, posts...)
	if err := r.save(ctx, posts); err != nil {
		return models.Post{}, err
	}

	r.logger.Info().Str("postID", post.ID).Str("status", string(post.Status)).Msg("Post created")
	return post.Clone(), nil
}

func (r *PostRepo) uniqueID(posts []models.Post) string {
	taken := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		taken[p.ID] = struct{}{}
	}
	for {
		id := r.newID()
		if _, ok := taken[id]; !ok && id != "" {
			return id
		}
		r.logger.Warn().Str("postID", id).Msg("Generated post id already taken, retrying")
	}
}

// Update merges the supplied fields into an existing post. The excerpt is
// recomputed from the content unless one is supplied.
func (r *PostRepo) Update(ctx context.Context, id string, fields models.PostFields) (models.Post, error) {
	if fields.Status != nil && !fields.Status.Valid() {
		return models.Post{}, errs.NewInvalidFieldError("status", fmt.Sprintf("unknown status %q", *fields.Status))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load(ctx)
	if err != nil {
		return models.Post{}, err
	}

	idx := indexOf(posts, id)
	if idx < 0 {
		return models.Post{}, errs.NewNotFound(postEntity)
	}

	post := posts[idx].Clone()
	if fields.Title != nil {
		post.Title = *fields.Title
	}
	if fields.Content != nil {
		post.Content = *fields.Content
	}
	if fields.Tags != nil {
		post.Tags = models.NormalizeTags(*fields.Tags)
	}
	if fields.CoverImage != nil {
		post.CoverImage = *fields.CoverImage
	}
	if fields.Status != nil {
		post.Status = *fields.Status
	}
	if fields.Excerpt != nil {
		post.Excerpt = *fields.Excerpt
	} else {
		post.Excerpt = models.BuildExcerpt(post.Content)
	}

	// a clock that went backwards must not move updatedAt back
	updatedAt := r.timestamp()
	if updatedAt.Before(post.UpdatedAt) {
		updatedAt = post.UpdatedAt
	}
	post.UpdatedAt = updatedAt
	posts[idx] = post

	if err := r.save(ctx, posts); err != nil {
		return models.Post{}, err
	}

	r.logger.Info().Str("postID", post.ID).Str("status", string(post.Status)).Msg("Post updated")
	return post.Clone(), nil
}

// Delete removes a post for good
func (r *PostRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(posts, id)
	if idx < 0 {
		return errs.NewNotFound(postEntity)
	}
	posts = append(posts[:idx], posts[idx+1:]...)

	if err := r.save(ctx, posts); err != nil {
		return err
	}

	r.logger.Info().Str("postID", id).Msg("Post deleted")
	return nil
}

// BackupFileName names an export taken on day
func BackupFileName(day time.Time) string {
	return fmt.Sprintf("blog-backup-%s.json", day.Format("2006-01-02"))
}

// ExportAll serializes the collection in stored order as indented JSON
func (r *PostRepo) ExportAll(ctx context.Context) ([]byte, error) {
	posts, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return nil, errs.NewInternalErrorWithCause("failed to encode posts", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// importRecord tells absent fields apart from empty ones
type importRecord struct {
	ID         *string        `json:"id"`
	Title      *string        `json:"title"`
	Content    *string        `json:"content"`
	Excerpt    *string        `json:"excerpt"`
	Tags       []string       `json:"tags"`
	CoverImage *string        `json:"coverImage"`
	Status     *models.Status `json:"status"`
	CreatedAt  *time.Time     `json:"createdAt"`
	UpdatedAt  *time.Time     `json:"updatedAt"`
}

func (rec importRecord) toPost() (models.Post, error) {
	switch {
	case rec.ID == nil:
		return models.Post{}, fmt.Errorf("missing id")
	case rec.Title == nil:
		return models.Post{}, fmt.Errorf("missing title")
	case rec.CreatedAt == nil:
		return models.Post{}, fmt.Errorf("missing createdAt")
	case rec.UpdatedAt == nil:
		return models.Post{}, fmt.Errorf("missing updatedAt")
	}

	post := models.Post{
		ID:        *rec.ID,
		Title:     *rec.Title,
		Tags:      rec.Tags,
		Status:    models.StatusPublished,
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
	if rec.Content != nil {
		post.Content = *rec.Content
	}
	if rec.Excerpt != nil {
		post.Excerpt = *rec.Excerpt
	}
	if rec.CoverImage != nil {
		post.CoverImage = *rec.CoverImage
	}
	if rec.Status != nil {
		post.Status = *rec.Status
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return post, post.Validate()
}

// ImportAll replaces the whole collection with the posts in data. data must
// be a JSON array of valid post records; otherwise nothing is written.
func (r *PostRepo) ImportAll(ctx context.Context, data []byte) (int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, errs.NewInvalidFormatError("import payload must be a JSON array of posts", nil)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return 0, errs.NewInvalidFormatError("import payload is not valid JSON", err)
	}

	posts := make([]models.Post, 0, len(raw))
	seen := make(map[string]int, len(raw))
	for i, item := range raw {
		var rec importRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return 0, errs.NewInvalidFormatError(fmt.Sprintf("record %d is not a post", i), err)
		}
		post, err := rec.toPost()
		if err != nil {
			return 0, errs.NewInvalidFormatError(fmt.Sprintf("record %d is invalid", i), err)
		}
		if first, dup := seen[post.ID]; dup {
			return 0, errs.NewInvalidFormatError(fmt.Sprintf("record %d repeats the id of record %d", i, first), nil)
		}
		seen[post.ID] = i
		posts = append(posts, post)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.save(ctx, posts); err != nil {
		return 0, err
	}

	r.logger.Info().Int("count", len(posts)).Msg("Posts imported")
	return len(posts), nil
}

// Search keeps the posts whose title, excerpt or tags contain query
func Search(posts []models.Post, query string) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if p.Matches(query) {
			out = append(out, p)
		}
	}
	return out
}

func indexOf(posts []models.Post, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}
