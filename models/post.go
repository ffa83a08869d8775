package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the publication state of a post
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Post represents a blog post as stored in the posts record.
// Field order is the serialization order of exports.
type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Excerpt    string    `json:"excerpt"`
	Tags       []string  `json:"tags"`
	CoverImage string    `json:"coverImage"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PostFields holds caller-supplied values for create and update.
// A nil field means "not supplied".
type PostFields struct {
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	Excerpt    *string   `json:"excerpt,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	CoverImage *string   `json:"coverImage,omitempty"`
	Status     *Status   `json:"status,omitempty"`
}

// IsPublished reports whether the post is visible to readers
func (p Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// Clone returns a copy that shares no slices with p
func (p Post) Clone() Post {
	c := p
	c.Tags = append([]string{}, p.Tags...)
	return c
}

// Matches reports whether query occurs, case-insensitively, in the title,
// the excerpt or any tag. An empty query matches everything.
func (p Post) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Excerpt), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// Validate checks the structural rules every stored record must satisfy.
func (p Post) Validate() error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("id is empty")
	case !p.Status.Valid():
		return fmt.Errorf("post %s: unknown status %q", p.ID, p.Status)
	case p.CreatedAt.IsZero() || p.UpdatedAt.IsZero():
		return fmt.Errorf("post %s: missing timestamps", p.ID)
	case p.UpdatedAt.Before(p.CreatedAt):
		return fmt.Errorf("post %s: updatedAt precedes createdAt", p.ID)
	}
	return nil
}

// NormalizeTags lowercases and trims tags, drops blanks and duplicates,
// and keeps the first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SortNewestFirst orders posts by CreatedAt descending. Ties keep their relative order.
func SortNewestFirst(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
