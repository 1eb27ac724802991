package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"news-api/internal/domain/models"
	"news-api/internal/lib/api/request"
	"news-api/internal/lib/jwt"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/lib/validation"
	"news-api/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken             = errors.New("user already exists with this email")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAlreadyVerified        = errors.New("author is already verified")
	ErrIncompleteRegistration = errors.New("registration steps are incomplete")
)

type Storage interface {
	SaveUser(ctx context.Context, u models.User) (int64, error)
	User(ctx context.Context, id int64) (models.User, error)
	UserByUserID(ctx context.Context, userID string) (models.User, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserIDExists(ctx context.Context, userID string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, p models.Profile, updatedAt time.Time) error
	SetVerified(ctx context.Context, userID string, updatedAt time.Time) error
	SetRole(ctx context.Context, email string, role models.Role, updatedAt time.Time) error
	Authors(ctx context.Context, verified bool) ([]models.User, error)
	LatestUsers(ctx context.Context, limit int) ([]models.User, error)
	ArchiveUser(ctx context.Context, u models.User, deletedAt time.Time) error
	DeleteUser(ctx context.Context, userID string) error
	ArchivedUser(ctx context.Context, userID string) (models.ArchivedUser, error)
	ArchivedUsers(ctx context.Context) ([]models.ArchivedUser, error)
}

type Service struct {
	log      *slog.Logger
	storage  Storage
	session  Session
	tokenTTL time.Duration
	secret   string
	hashCost int
	now      func() time.Time
}

func New(log *slog.Logger, storage Storage, session Session, tokenTTL time.Duration, secret string, hashCost int) *Service {
	if hashCost <= 0 {
		hashCost = bcrypt.DefaultCost
	}

	return &Service{
		log:      log,
		storage:  storage,
		session:  session,
		tokenTTL: tokenTTL,
		secret:   secret,
		hashCost: hashCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	const op = "service.user.Login"

	log := s.log.With(slog.String("op", op))

	user, err := s.storage.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Info("unknown email")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user by email", sl.Error(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	// Checking if password correct
	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("incorrect password", slog.String("user_id", user.UserID))
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, err := jwt.NewToken(user, s.tokenTTL, s.secret)
	if err != nil {
		log.Error("failed to create new token", sl.Error(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// User returns the account with the given internal id.
func (s *Service) User(ctx context.Context, id int64) (models.User, error) {
	const op = "service.user.User"

	user, err := s.storage.User(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		s.log.Error("failed to get user", slog.String("op", op), sl.Error(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id int64, upd request.ProfileUpdate) (models.User, error) {
	const op = "service.user.UpdateProfile"

	log := s.log.With(slog.String("op", op))

	upd.FullName = trimmed(upd.FullName)
	upd.Bio = trimmed(upd.Bio)

	if err := validation.Struct(upd); err != nil {
		return models.User{}, err
	}

	p := models.Profile{
		FullName:          upd.FullName,
		Bio:               upd.Bio,
		PortfolioURL:      upd.PortfolioURL,
		NewsletterUpdates: upd.NewsletterUpdates,
		Preferences:       upd.Preferences,
	}
	if upd.ExperienceLevel != nil {
		level := models.ExperienceLevel(*upd.ExperienceLevel)
		p.ExperienceLevel = &level
	}

	if err := s.storage.UpdateProfile(ctx, id, p, s.now()); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to update profile", sl.Error(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.User(ctx, id)
}

// PromoteAdmins gives the admin role to existing accounts with the listed
// emails. Unknown emails are skipped.
func (s *Service) PromoteAdmins(ctx context.Context, emails []string) error {
	const op = "service.user.PromoteAdmins"

	log := s.log.With(slog.String("op", op))

	for _, email := range emails {
		err := s.storage.SetRole(ctx, normalizeEmail(email), models.RoleAdmin, s.now())
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("admin account not registered yet", slog.String("email", email))
			continue
		}
		if err != nil {
			log.Error("failed to promote admin", sl.Error(err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// Authors lists author accounts by verification state.
func (s *Service) Authors(ctx context.Context, verified bool) ([]models.User, error) {
	const op = "service.user.Authors"

	users, err := s.storage.Authors(ctx, verified)
	if err != nil {
		s.log.Error("failed to list authors", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// ApproveAuthor flips an author to verified. Verification is one-way.
func (s *Service) ApproveAuthor(ctx context.Context, userID string) (models.User, error) {
	const op = "service.user.ApproveAuthor"

	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	user, err := s.storage.UserByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to get user", sl.Error(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if user.IsVerified {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}

	updatedAt := s.now()
	if err := s.storage.SetVerified(ctx, userID, updatedAt); err != nil {
		log.Error("failed to verify user", sl.Error(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("author verified")

	user.IsVerified = true
	user.UpdatedAt = updatedAt
	return user, nil
}

// Delete archives the account and then removes it from the live store.
// A replay after a partial failure finishes the job; deleting an account
// that is already archived and gone succeeds.
func (s *Service) Delete(ctx context.Context, userID string) error {
	const op = "service.user.Delete"

	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	user, err := s.storage.UserByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrUserNotFound) {
			log.Error("failed to get user", sl.Error(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		if _, aerr := s.storage.ArchivedUser(ctx, userID); aerr == nil {
			return nil
		} else if errors.Is(aerr, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		} else {
			log.Error("failed to get archived user", sl.Error(aerr))
			return fmt.Errorf("%s: %w", op, aerr)
		}
	}

	if err := s.storage.ArchiveUser(ctx, user, s.now()); err != nil {
		log.Error("failed to archive user", sl.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteUser(ctx, userID); err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("user archived but not removed", sl.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user archived and removed")

	return nil
}

func (s *Service) DeletedUsers(ctx context.Context) ([]models.ArchivedUser, error) {
	const op = "service.user.DeletedUsers"

	users, err := s.storage.ArchivedUsers(ctx)
	if err != nil {
		s.log.Error("failed to list deleted users", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// Latest returns the newest accounts first.
func (s *Service) Latest(ctx context.Context, limit int) ([]models.User, error) {
	const op = "service.user.Latest"

	users, err := s.storage.LatestUsers(ctx, limit)
	if err != nil {
		s.log.Error("failed to list latest users", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
