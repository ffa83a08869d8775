package blogstate

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

const postNotFoundMessage = "Post not found"

// Repository is the post storage the model drives
type Repository interface {
	List(ctx context.Context, publishedOnly bool) ([]models.Post, error)
	FindByID(ctx context.Context, id string, publishedOnly bool) (*models.Post, error)
	Create(ctx context.Context, fields models.PostFields) (models.Post, error)
	Update(ctx context.Context, id string, fields models.PostFields) (models.Post, error)
	Delete(ctx context.Context, id string) error
}

// AdminChecker reports whether the current session is the admin
type AdminChecker interface {
	IsAdmin() bool
}

// Model owns the State and moves it through the transitions as repository
// calls start, succeed and fail. Readers who are not the admin only ever
// see published posts, and their mutations are refused.
type Model struct {
	repo  Repository
	admin AdminChecker

	// held while a transition is applied and delivered, so subscribers see
	// snapshots in order
	notifyMu sync.Mutex

	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextID      int

	logger zerolog.Logger
}

func NewModel(repo Repository, admin AdminChecker) *Model {
	return &Model{
		repo:        repo,
		admin:       admin,
		state:       State{Posts: []models.Post{}},
		subscribers: make(map[int]func(State)),
		logger:      log.With().Str("component", "postViewModel").Logger(),
	}
}

// State returns the current snapshot
func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Subscribe calls fn with every new snapshot until cancel is called.
// fn must not call the model's load or mutation methods.
func (m *Model) Subscribe(fn func(State)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

func (m *Model) apply(transition func(State) State) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	m.state = transition(m.state)
	snapshot := m.state
	subscribers := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot.Clone())
	}
}

func (m *Model) fail(err error) {
	m.apply(func(s State) State { return Failed(s, err.Error()) })
}

func (m *Model) isAdmin() bool {
	return m.admin != nil && m.admin.IsAdmin()
}

// requireAdmin refuses mutations from anyone but the admin, recording the refusal
func (m *Model) requireAdmin() error {
	if m.isAdmin() {
		return nil
	}
	err := errs.NewUnauthorizedError("admin login required")
	m.fail(err)
	return err
}

// LoadPosts replaces the list. Drafts are only included for the admin.
func (m *Model) LoadPosts(ctx context.Context, publishedOnly bool) ([]models.Post, error) {
	publishedOnly = publishedOnly || !m.isAdmin()
	m.apply(Loading)

	posts, err := m.repo.List(ctx, publishedOnly)
	if err != nil {
		m.logger.Error().Err(err).Msg("Failed to load posts")
		m.fail(err)
		return nil, err
	}
	m.apply(func(s State) State { return PostsLoaded(s, posts) })
	return posts, nil
}

// LoadPost opens one post. A missing post is reported both ways: the
// result is nil and the state carries an error message.
func (m *Model) LoadPost(ctx context.Context, id string, publishedOnly bool) (*models.Post, error) {
	publishedOnly = publishedOnly || !m.isAdmin()
	m.apply(Loading)

	post, err := m.repo.FindByID(ctx, id, publishedOnly)
	if err != nil {
		m.logger.Error().Err(err).Str("postID", id).Msg("Failed to load post")
		m.fail(err)
		return nil, err
	}
	if post == nil {
		m.apply(func(s State) State { return Failed(s, postNotFoundMessage) })
		return nil, nil
	}
	m.apply(func(s State) State { return PostLoaded(s, *post) })
	return post, nil
}

func (m *Model) CreatePost(ctx context.Context, fields models.PostFields) (models.Post, error) {
	if err := m.requireAdmin(); err != nil {
		return models.Post{}, err
	}
	m.apply(Loading)

	post, err := m.repo.Create(ctx, fields)
	if err != nil {
		m.fail(err)
		return models.Post{}, err
	}
	m.apply(func(s State) State { return PostAdded(s, post) })
	return post, nil
}

func (m *Model) UpdatePost(ctx context.Context, id string, fields models.PostFields) (models.Post, error) {
	if err := m.requireAdmin(); err != nil {
		return models.Post{}, err
	}
	m.apply(Loading)

	post, err := m.repo.Update(ctx, id, fields)
	if err != nil {
		m.fail(err)
		return models.Post{}, err
	}
	m.apply(func(s State) State { return PostUpdated(s, post) })
	return post, nil
}

func (m *Model) DeletePost(ctx context.Context, id string) error {
	if err := m.requireAdmin(); err != nil {
		return err
	}
	m.apply(Loading)

	if err := m.repo.Delete(ctx, id); err != nil {
		m.fail(err)
		return err
	}
	m.apply(func(s State) State { return PostDeleted(s, id) })
	return nil
}

// ClearCurrentPost closes the open post
func (m *Model) ClearCurrentPost() {
	m.apply(CurrentPostCleared)
}
