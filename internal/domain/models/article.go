package models

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

const DefaultRejectionReason = "No reason provided"

type Article struct {
	ID              int64     `json:"-"`
	NewsID          string    `json:"newsId"`
	Title           string    `json:"title"`
	Tags            []string  `json:"tags"`
	Image           string    `json:"image"`
	Content         string    `json:"content"`
	AuthorID        string    `json:"authorId"`
	AuthorName      string    `json:"authorName"`
	Status          Status    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	IsDraft         bool      `json:"isDraft"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type ArchivedArticle struct {
	Article
	DeletedAt time.Time `json:"deletedAt"`
}

type AuthorCount struct {
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Count      int    `json:"count"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
