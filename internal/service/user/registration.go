package user

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"news-api/internal/domain/models"
	"news-api/internal/lib/api/request"
	"news-api/internal/lib/jwt"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/lib/shortid"
	"news-api/internal/lib/validation"
	"news-api/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

// Session is the per-client store that carries a registration between its
// stages. *scs.SessionManager satisfies it.
type Session interface {
	Put(ctx context.Context, key string, val interface{})
	Get(ctx context.Context, key string) interface{}
	Destroy(ctx context.Context) error
}

const (
	keyStep1 = "register.step1"
	keyStep2 = "register.step2"
	keyStep3 = "register.step3"
)

// Identity is the stage 1 state. The password is kept only as its hash.
type Identity struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	PassHash []byte `json:"-"`
}

type About struct {
	Bio               string `json:"bio"`
	PortfolioURL      string `json:"portfolioURL,omitempty"`
	NewsletterUpdates bool   `json:"newsletterUpdates"`
	TermsAgreed       bool   `json:"termsAgreed"`
}

type Interests struct {
	Preferences     []string               `json:"preferences"`
	ExperienceLevel models.ExperienceLevel `json:"experienceLevel"`
}

// RegistrationState reports which stages the current session holds.
type RegistrationState struct {
	Step1 *Identity  `json:"step1,omitempty"`
	Step2 *About     `json:"step2,omitempty"`
	Step3 *Interests `json:"step3,omitempty"`
}

func init() {
	// scs encodes session values with gob.
	gob.Register(Identity{})
	gob.Register(About{})
	gob.Register(Interests{})
}

func (s *Service) RegisterStep1(ctx context.Context, req request.RegisterStep1) error {
	const op = "service.user.RegisterStep1"

	log := s.log.With(slog.String("op", op))

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)

	if err := validation.Struct(req); err != nil {
		return err
	}

	email := req.Email

	if err := s.ensureEmailFree(ctx, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.session.Put(ctx, keyStep1, Identity{
		FullName: req.FullName,
		Email:    email,
		PassHash: passHash,
	})

	return nil
}

func (s *Service) RegisterStep2(ctx context.Context, req request.RegisterStep2) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	about := About{
		Bio:          req.Bio,
		PortfolioURL: req.PortfolioURL,
		TermsAgreed:  *req.TermsAgreed,
	}
	if req.NewsletterUpdates != nil {
		about.NewsletterUpdates = *req.NewsletterUpdates
	}

	s.session.Put(ctx, keyStep2, about)

	return nil
}

func (s *Service) RegisterStep3(ctx context.Context, req request.RegisterStep3) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	s.session.Put(ctx, keyStep3, Interests{
		Preferences:     req.Preferences,
		ExperienceLevel: models.ExperienceLevel(req.ExperienceLevel),
	})

	return nil
}

// FinalizeRegistration persists the account assembled by the three stages,
// clears the session and returns a bearer token for the new user.
func (s *Service) FinalizeRegistration(ctx context.Context) (string, models.User, error) {
	const op = "service.user.FinalizeRegistration"

	log := s.log.With(slog.String("op", op))

	state := s.RegistrationState(ctx)
	if state.Step1 == nil || state.Step2 == nil || state.Step3 == nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, ErrIncompleteRegistration)
	}

	// The email may have been taken since stage 1.
	if err := s.ensureEmailFree(ctx, state.Step1.Email); err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user := models.User{
		FullName:          state.Step1.FullName,
		Email:             state.Step1.Email,
		PassHash:          state.Step1.PassHash,
		Bio:               state.Step2.Bio,
		PortfolioURL:      state.Step2.PortfolioURL,
		NewsletterUpdates: state.Step2.NewsletterUpdates,
		TermsAgreed:       state.Step2.TermsAgreed,
		Preferences:       state.Step3.Preferences,
		ExperienceLevel:   state.Step3.ExperienceLevel,
		Role:              models.RoleAuthor,
		IsVerified:        false,
	}

	for {
		userID, err := shortid.Generate(ctx, s.storage.UserIDExists)
		if err != nil {
			log.Error("failed to generate user id", sl.Error(err))
			return "", models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		user.UserID = userID

		now := s.now()
		user.CreatedAt, user.UpdatedAt = now, now

		id, err := s.storage.SaveUser(ctx, user)
		if errors.Is(err, storage.ErrUserIDTaken) {
			log.Warn("user id taken concurrently, regenerating", slog.String("user_id", userID))
			continue
		}
		if errors.Is(err, storage.ErrUserExists) {
			return "", models.User{}, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		if err != nil {
			log.Error("failed to save user", sl.Error(err))
			return "", models.User{}, fmt.Errorf("%s: %w", op, err)
		}

		user.ID = id
		break
	}

	token, err := jwt.NewToken(user, s.tokenTTL, s.secret)
	if err != nil {
		log.Error("failed to create new token", sl.Error(err))
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.session.Destroy(ctx); err != nil {
		log.Error("failed to destroy registration session", sl.Error(err))
		return "", models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", user.UserID))

	return token, user, nil
}

// RegistrationState returns the stages stored in the current session.
func (s *Service) RegistrationState(ctx context.Context) RegistrationState {
	var state RegistrationState

	if v, ok := s.session.Get(ctx, keyStep1).(Identity); ok {
		state.Step1 = &v
	}
	if v, ok := s.session.Get(ctx, keyStep2).(About); ok {
		state.Step2 = &v
	}
	if v, ok := s.session.Get(ctx, keyStep3).(Interests); ok {
		state.Step3 = &v
	}

	return state
}

// DestroyRegistration abandons a partial registration.
func (s *Service) DestroyRegistration(ctx context.Context) error {
	const op = "service.user.DestroyRegistration"

	if err := s.session.Destroy(ctx); err != nil {
		s.log.Error("failed to destroy registration session", slog.String("op", op), sl.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.storage.UserByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case errors.Is(err, storage.ErrUserNotFound):
		return nil
	default:
		s.log.Error("failed to check email", sl.Error(err))
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
