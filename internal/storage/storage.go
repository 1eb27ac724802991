package storage

import (
	"errors"

	"news-api/internal/domain/models"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrUserIDTaken  = errors.New("user id already taken")

	ErrArticleExists   = errors.New("article already exists")
	ErrArticleNotFound = errors.New("article not found")
)

// ArticleFilter narrows article listings. Zero values mean "any".
type ArticleFilter struct {
	Status   models.Status
	Draft    *bool
	AuthorID string
	Tag      string
	Limit    int
}

// Public restricts f to published, non-draft articles.
func (f ArticleFilter) Public() ArticleFilter {
	notDraft := false
	f.Status = models.StatusPublished
	f.Draft = &notDraft
	return f
}
