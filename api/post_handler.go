package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/blogstate"
	"github.com/rpupo63/inkwell/database"
	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

type postHandler struct {
	responder Responder
	logger    zerolog.Logger
	postRepo  *database.PostRepo
}

func newPostHandler(postRepo *database.PostRepo) postHandler {
	logger := log.With().Str("handlerName", "postHandler").Logger()

	return postHandler{
		responder: NewResponder(logger),
		logger:    logger,
		postRepo:  postRepo,
	}
}

// model returns a view model acting with the request's privileges
func (h postHandler) model(r *http.Request) *blogstate.Model {
	return blogstate.NewModel(h.postRepo, requestAdmin{ctx: r.Context()})
}

// getAllPosts lists posts, newest first
// @Summary Get all posts
// @Description Lists posts newest first. Drafts are only listed for the admin. q filters by title, excerpt and tags.
// @Tags Posts
// @Produce json
// @Param q query string false "Search text"
// @Success 200 {object} PostCollection "List of posts"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching posts"
// @Router /posts [get]
func (h postHandler) getAllPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := h.model(r).LoadPosts(r.Context(), false)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if q := r.URL.Query().Get("q"); q != "" {
			posts = database.Search(posts, q)
		}

		h.responder.WriteJSON(w, PostCollection{Posts: posts, Total: len(posts)})
	}
}

// getPost retrieves a post by id
// @Summary Get post
// @Tags Posts
// @Produce json
// @Param postID path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} ErrorResponse "Not Found - Post not found or not published"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching post"
// @Router /posts/{postID} [get]
func (h postHandler) getPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "postID")

		post, err := h.model(r).LoadPost(r.Context(), postID, false)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if post == nil {
			h.responder.WriteError(w, errs.NewNotFound("post"))
			return
		}

		h.responder.WriteJSON(w, post)
	}
}

// createPost stores a new post
// @Summary Create post
// @Tags Posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post body models.PostFields true "Post fields"
// @Success 201 {object} models.Post
// @Failure 400 {object} ErrorResponse "Bad Request - Missing title or content"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /posts [post]
func (h postHandler) createPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields models.PostFields
		if err := decodeJSON(w, r, &fields); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if fields.Title == nil || strings.TrimSpace(*fields.Title) == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("title"))
			return
		}
		if fields.Content == nil || models.BlankContent(*fields.Content) {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("content"))
			return
		}

		post, err := h.model(r).CreatePost(r.Context(), fields)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, post)
	}
}

// updatePost changes the supplied fields of a post
// @Summary Update post
// @Tags Posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Param post body models.PostFields true "Fields to change"
// @Success 200 {object} models.Post
// @Failure 400 {object} ErrorResponse "Bad Request - Blank title or content"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not Found - Post not found"
// @Router /posts/{postID} [put]
func (h postHandler) updatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "postID")

		var fields models.PostFields
		if err := decodeJSON(w, r, &fields); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
			h.responder.WriteError(w, errs.NewInvalidFieldError("title", "title must not be blank"))
			return
		}
		if fields.Content != nil && models.BlankContent(*fields.Content) {
			h.responder.WriteError(w, errs.NewInvalidFieldError("content", "content must not be empty"))
			return
		}

		post, err := h.model(r).UpdatePost(r.Context(), postID, fields)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, post)
	}
}

// deletePost removes a post
// @Summary Delete post
// @Tags Posts
// @Security BearerAuth
// @Param postID path string true "Post ID"
// @Success 204
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Not Found - Post not found"
// @Router /posts/{postID} [delete]
func (h postHandler) deletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "postID")

		if err := h.model(r).DeletePost(r.Context(), postID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
