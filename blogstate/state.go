// Package blogstate keeps the loaded posts, the open post, and the loading
// and error flags a front end renders from. State changes only through the
// transition functions below; each returns a new State and leaves its input
// untouched.
package blogstate

import "github.com/rpupo63/inkwell/models"

// State is a snapshot of what the front end shows
type State struct {
	Posts       []models.Post `json:"posts"`
	CurrentPost *models.Post  `json:"currentPost"`
	Loading     bool          `json:"loading"`
	Error       string        `json:"error,omitempty"`
}

// Clone returns a copy that shares nothing with s
func (s State) Clone() State {
	c := s
	c.Posts = clonePosts(s.Posts)
	if s.CurrentPost != nil {
		p := s.CurrentPost.Clone()
		c.CurrentPost = &p
	}
	return c
}

func clonePosts(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}

func Loading(s State) State {
	s.Loading = true
	s.Error = ""
	return s
}

func Failed(s State, message string) State {
	s.Loading = false
	s.Error = message
	return s
}

func PostsLoaded(s State, posts []models.Post) State {
	s.Loading = false
	s.Error = ""
	s.Posts = clonePosts(posts)
	return s
}

func PostLoaded(s State, post models.Post) State {
	s.Loading = false
	s.Error = ""
	p := post.Clone()
	s.CurrentPost = &p
	return s
}

// CurrentPostCleared drops the open post; posts and error stay as they are
func CurrentPostCleared(s State) State {
	s.CurrentPost = nil
	return s
}

// PostAdded puts a new post at the front of the list
func PostAdded(s State, post models.Post) State {
	s.Loading = false
	posts := make([]models.Post, 0, len(s.Posts)+1)
	posts = append(posts, post.Clone())
	s.Posts = append(posts, clonePosts(s.Posts)...)
	return s
}

// PostUpdated swaps the post in the list and, if it is open, the open post
func PostUpdated(s State, post models.Post) State {
	s.Loading = false
	posts := clonePosts(s.Posts)
	for i := range posts {
		if posts[i].ID == post.ID {
			posts[i] = post.Clone()
		}
	}
	s.Posts = posts
	if s.CurrentPost != nil && s.CurrentPost.ID == post.ID {
		p := post.Clone()
		s.CurrentPost = &p
	}
	return s
}

// PostDeleted removes the post from the list and closes it if it is open
func PostDeleted(s State, id string) State {
	s.Loading = false
	posts := make([]models.Post, 0, len(s.Posts))
	for _, p := range s.Posts {
		if p.ID != id {
			posts = append(posts, p.Clone())
		}
	}
	s.Posts = posts
	if s.CurrentPost != nil && s.CurrentPost.ID == id {
		s.CurrentPost = nil
	}
	return s
}
