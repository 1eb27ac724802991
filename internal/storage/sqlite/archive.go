package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"news-api/internal/domain/models"
	"news-api/internal/storage"
)

// Archive rows are written once. Re-archiving an id that is already present
// is a no-op, which makes archive-then-delete safe to replay.

const deletedUserColumns = `user_id, full_name, email, pass_hash, bio, preferences, experience_level,
	terms_agreed, portfolio_url, newsletter_updates, is_verified, role, created_at, updated_at, deleted_at`

const deletedArticleColumns = `news_id, title, tags, image, content, author_id, author_name, status,
	rejection_reason, is_draft, created_at, updated_at, deleted_at`

func (s *Storage) ArchiveUser(ctx context.Context, u models.User, deletedAt time.Time) error {
	const op = "storage.sqlite.ArchiveUser"

	prefs, err := json.Marshal(u.Preferences)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deleted_users (`+deletedUserColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		u.UserID, u.FullName, u.Email, u.PassHash, u.Bio, string(prefs), string(u.ExperienceLevel),
		u.TermsAgreed, u.PortfolioURL, u.NewsletterUpdates, u.IsVerified, string(u.Role),
		u.CreatedAt, u.UpdatedAt, deletedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, userID string) error {
	const op = "storage.sqlite.DeleteUser"

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(res, op, storage.ErrUserNotFound)
}

func (s *Storage) ArchivedUser(ctx context.Context, userID string) (models.ArchivedUser, error) {
	const op = "storage.sqlite.ArchivedUser"

	row := s.db.QueryRowContext(ctx, `SELECT `+deletedUserColumns+` FROM deleted_users WHERE user_id = ?`, userID)

	u, err := scanArchivedUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ArchivedUser{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.ArchivedUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Storage) ArchivedUsers(ctx context.Context) ([]models.ArchivedUser, error) {
	const op = "storage.sqlite.ArchivedUsers"

	rows, err := s.db.QueryContext(ctx, `SELECT `+deletedUserColumns+` FROM deleted_users ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []models.ArchivedUser{}
	for rows.Next() {
		u, err := scanArchivedUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Storage) ArchiveArticle(ctx context.Context, a models.Article, deletedAt time.Time) error {
	const op = "storage.sqlite.ArchiveArticle"

	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deleted_articles (`+deletedArticleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(news_id) DO NOTHING`,
		a.NewsID, a.Title, string(tags), a.Image, a.Content, a.AuthorID, a.AuthorName, string(a.Status),
		a.RejectionReason, a.IsDraft, a.CreatedAt, a.UpdatedAt, deletedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) DeleteArticle(ctx context.Context, newsID string) error {
	const op = "storage.sqlite.DeleteArticle"

	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM article_tags WHERE article_id IN (SELECT id FROM articles WHERE news_id = ?)`, newsID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE news_id = ?`, newsID)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return storage.ErrArticleNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) ArchivedArticle(ctx context.Context, newsID string) (models.ArchivedArticle, error) {
	const op = "storage.sqlite.ArchivedArticle"

	row := s.db.QueryRowContext(ctx, `SELECT `+deletedArticleColumns+` FROM deleted_articles WHERE news_id = ?`, newsID)

	a, err := scanArchivedArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ArchivedArticle{}, fmt.Errorf("%s: %w", op, storage.ErrArticleNotFound)
		}
		return models.ArchivedArticle{}, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (s *Storage) ArchivedArticles(ctx context.Context) ([]models.ArchivedArticle, error) {
	const op = "storage.sqlite.ArchivedArticles"

	rows, err := s.db.QueryContext(ctx, `SELECT `+deletedArticleColumns+` FROM deleted_articles ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []models.ArchivedArticle{}
	for rows.Next() {
		a, err := scanArchivedArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func scanArchivedUser(row scanner) (models.ArchivedUser, error) {
	var (
		u     models.ArchivedUser
		prefs string
		level string
		role  string
	)

	err := row.Scan(&u.UserID, &u.FullName, &u.Email, &u.PassHash, &u.Bio, &prefs, &level, &u.TermsAgreed,
		&u.PortfolioURL, &u.NewsletterUpdates, &u.IsVerified, &role, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return models.ArchivedUser{}, err
	}

	if err := json.Unmarshal([]byte(prefs), &u.Preferences); err != nil {
		return models.ArchivedUser{}, fmt.Errorf("decode preferences: %w", err)
	}
	u.ExperienceLevel = models.ExperienceLevel(level)
	u.Role = models.Role(role)

	return u, nil
}

func scanArchivedArticle(row scanner) (models.ArchivedArticle, error) {
	var (
		a      models.ArchivedArticle
		tags   string
		status string
	)

	err := row.Scan(&a.NewsID, &a.Title, &tags, &a.Image, &a.Content, &a.AuthorID, &a.AuthorName, &status,
		&a.RejectionReason, &a.IsDraft, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt)
	if err != nil {
		return models.ArchivedArticle{}, err
	}

	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return models.ArchivedArticle{}, fmt.Errorf("decode tags: %w", err)
	}
	a.Status = models.Status(status)

	return a, nil
}
