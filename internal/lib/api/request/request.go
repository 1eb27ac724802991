package request

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterStep1 carries account identity and the plain password. Only the
// bcrypt hash is kept in the registration session.
type RegisterStep1 struct {
	FullName string `json:"fullName" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type RegisterStep2 struct {
	Bio               string `json:"bio" validate:"required,min=50,max=2000"`
	PortfolioURL      string `json:"portfolioURL,omitempty" validate:"omitempty,portfolio"`
	NewsletterUpdates *bool  `json:"newsletterUpdates,omitempty"`
	TermsAgreed       *bool  `json:"termsAgreed" validate:"required,eq=true"`
}

type RegisterStep3 struct {
	Preferences     []string `json:"preferences" validate:"required,min=1,max=5,unique,dive,required"`
	ExperienceLevel string   `json:"experienceLevel" validate:"required,oneof=beginner intermediate experienced"`
}

// ProfileUpdate lists the editable profile fields. Email is immutable.
type ProfileUpdate struct {
	FullName          *string  `json:"fullName,omitempty" validate:"omitempty,min=3,max=100"`
	Bio               *string  `json:"bio,omitempty" validate:"omitempty,min=50,max=2000"`
	PortfolioURL      *string  `json:"portfolioURL,omitempty" validate:"omitempty,portfolio"`
	NewsletterUpdates *bool    `json:"newsletterUpdates,omitempty"`
	Preferences       []string `json:"preferences,omitempty" validate:"omitempty,min=1,max=5,unique,dive,required"`
	ExperienceLevel   *string  `json:"experienceLevel,omitempty" validate:"omitempty,oneof=beginner intermediate experienced"`
}

type Reject struct {
	Reason string `json:"reason,omitempty"`
}

// Article holds the text fields of a news submission. Files travel separately.
type Article struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Tags    []string `json:"tags" validate:"max=20,unique,dive,required,max=50"`
	IsDraft bool     `json:"isDraft"`
}

// ArticleEdit lists the editable article fields. Nil means unchanged.
type ArticleEdit struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=20,unique,dive,required,max=50"`
	IsDraft *bool    `json:"isDraft,omitempty"`
}
