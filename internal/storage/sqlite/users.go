package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-api/internal/domain/models"
	"news-api/internal/storage"
)

const userColumns = `id, user_id, full_name, email, pass_hash, bio, preferences, experience_level,
	terms_agreed, portfolio_url, newsletter_updates, is_verified, role, created_at, updated_at`

func (s *Storage) SaveUser(ctx context.Context, u models.User) (int64, error) {
	const op = "storage.sqlite.SaveUser"

	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO users (user_id, full_name, email, pass_hash, bio, preferences, experience_level,
			terms_agreed, portfolio_url, newsletter_updates, is_verified, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, u.UserID, u.FullName, u.Email, u.PassHash, u.Bio, string(prefs),
		string(u.ExperienceLevel), u.TermsAgreed, u.PortfolioURL, u.NewsletterUpdates, u.IsVerified,
		string(u.Role), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		if isUniqueViolation(err, "users.user_id") {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrUserIDTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) User(ctx context.Context, id int64) (models.User, error) {
	const op = "storage.sqlite.User"

	return s.userWhere(ctx, op, "id = ?", id)
}

func (s *Storage) UserByUserID(ctx context.Context, userID string) (models.User, error) {
	const op = "storage.sqlite.UserByUserID"

	return s.userWhere(ctx, op, "user_id = ?", userID)
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.sqlite.UserByEmail"

	return s.userWhere(ctx, op, "email = ?", email)
}

func (s *Storage) userWhere(ctx context.Context, op, where string, arg any) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UserIDExists(ctx context.Context, userID string) (bool, error) {
	const op = "storage.sqlite.UserIDExists"

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE user_id = ?)
			OR EXISTS(SELECT 1 FROM deleted_users WHERE user_id = ?)`,
		userID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (s *Storage) UpdateProfile(ctx context.Context, id int64, p models.Profile, updatedAt time.Time) error {
	const op = "storage.sqlite.UpdateProfile"

	var (
		sets []string
		args []any
	)

	if p.FullName != nil {
		sets, args = append(sets, "full_name = ?"), append(args, *p.FullName)
	}
	if p.Bio != nil {
		sets, args = append(sets, "bio = ?"), append(args, *p.Bio)
	}
	if p.PortfolioURL != nil {
		sets, args = append(sets, "portfolio_url = ?"), append(args, *p.PortfolioURL)
	}
	if p.NewsletterUpdates != nil {
		sets, args = append(sets, "newsletter_updates = ?"), append(args, *p.NewsletterUpdates)
	}
	if p.Preferences != nil {
		prefs, err := json.Marshal(p.Preferences)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		sets, args = append(sets, "preferences = ?"), append(args, string(prefs))
	}
	if p.ExperienceLevel != nil {
		sets, args = append(sets, "experience_level = ?"), append(args, string(*p.ExperienceLevel))
	}

	sets, args = append(sets, "updated_at = ?"), append(args, updatedAt)
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(res, op, storage.ErrUserNotFound)
}

func (s *Storage) SetVerified(ctx context.Context, userID string, updatedAt time.Time) error {
	const op = "storage.sqlite.SetVerified"

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_verified = 1, updated_at = ? WHERE user_id = ?`, updatedAt, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(res, op, storage.ErrUserNotFound)
}

func (s *Storage) SetRole(ctx context.Context, email string, role models.Role, updatedAt time.Time) error {
	const op = "storage.sqlite.SetRole"

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE email = ?`, string(role), updatedAt, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(res, op, storage.ErrUserNotFound)
}

// Authors lists accounts with the author role by verification state.
func (s *Storage) Authors(ctx context.Context, verified bool) ([]models.User, error) {
	const op = "storage.sqlite.Authors"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? AND is_verified = ? ORDER BY created_at, id`,
		string(models.RoleAuthor), verified)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := collectUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// LatestUsers returns up to limit accounts, newest first.
func (s *Storage) LatestUsers(ctx context.Context, limit int) ([]models.User, error) {
	const op = "storage.sqlite.LatestUsers"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := collectUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func scanUser(row scanner) (models.User, error) {
	var (
		u     models.User
		prefs string
		level string
		role  string
	)

	err := row.Scan(&u.ID, &u.UserID, &u.FullName, &u.Email, &u.PassHash, &u.Bio, &prefs, &level,
		&u.TermsAgreed, &u.PortfolioURL, &u.NewsletterUpdates, &u.IsVerified, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}

	if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
		return models.User{}, fmt.Errorf("decode preferences: %w", err)
	}
	u.ExperienceLevel = models.ExperienceLevel(level)
	u.Role = models.Role(role)

	return u, nil
}

func expectAffected(res sql.Result, op string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return nil
}
