package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAuthor Role = "author"
)

type ExperienceLevel string

const (
	Beginner     ExperienceLevel = "beginner"
	Intermediate ExperienceLevel = "intermediate"
	Experienced  ExperienceLevel = "experienced"
)

// User is an author or admin account. ID is the internal row id carried in
// tokens, UserID is the public short code.
type User struct {
	ID                int64           `json:"-"`
	UserID            string          `json:"userId"`
	FullName          string          `json:"fullName"`
	Email             string          `json:"email"`
	PassHash          []byte          `json:"-"`
	Bio               string          `json:"bio"`
	Preferences       []string        `json:"preferences"`
	ExperienceLevel   ExperienceLevel `json:"experienceLevel"`
	TermsAgreed       bool            `json:"termsAgreed"`
	PortfolioURL      string          `json:"portfolioURL,omitempty"`
	NewsletterUpdates bool            `json:"newsletterUpdates"`
	IsVerified        bool            `json:"isVerified"`
	Role              Role            `json:"role"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type ArchivedUser struct {
	User
	DeletedAt time.Time `json:"deletedAt"`
}

// Profile holds the fields an account owner may change. Nil means unchanged.
type Profile struct {
	FullName          *string
	Bio               *string
	PortfolioURL      *string
	NewsletterUpdates *bool
	Preferences       []string
	ExperienceLevel   *ExperienceLevel
}
