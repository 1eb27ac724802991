package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"news-api/internal/domain/models"
	"news-api/internal/storage"
)

const tagSep = "\x1f"

const articleColumns = `a.id, a.news_id, a.title, a.image, a.content, a.author_id, a.author_name,
	a.status, a.rejection_reason, a.is_draft, a.created_at, a.updated_at,
	(SELECT group_concat(t.tag, char(31)) FROM article_tags t WHERE t.article_id = a.id)`

func (s *Storage) SaveArticle(ctx context.Context, a models.Article) (int64, error) {
	const op = "storage.sqlite.SaveArticle"

	var id int64
	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO articles (news_id, title, image, content, author_id, author_name,
				status, rejection_reason, is_draft, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.NewsID, a.Title, a.Image, a.Content, a.AuthorID, a.AuthorName,
			string(a.Status), a.RejectionReason, a.IsDraft, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return err
		}

		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		return insertTags(ctx, tx, id, a.Tags)
	})
	if err != nil {
		if isUniqueViolation(err, "articles.news_id") {
			return 0, fmt.Errorf("%s: %w", op, storage.ErrArticleExists)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) NewsIDExists(ctx context.Context, newsID string) (bool, error) {
	const op = "storage.sqlite.NewsIDExists"

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM articles WHERE news_id = ?)
			OR EXISTS(SELECT 1 FROM deleted_articles WHERE news_id = ?)`,
		newsID, newsID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func (s *Storage) Article(ctx context.Context, newsID string) (models.Article, error) {
	const op = "storage.sqlite.Article"

	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a WHERE a.news_id = ?`, newsID)

	art, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Article{}, fmt.Errorf("%s: %w", op, storage.ErrArticleNotFound)
		}
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	return art, nil
}

// UpdateArticle overwrites the editable columns and the tag set of a.
func (s *Storage) UpdateArticle(ctx context.Context, a models.Article) error {
	const op = "storage.sqlite.UpdateArticle"

	err := withTx(ctx, s.db, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE articles SET title = ?, image = ?, content = ?, status = ?, rejection_reason = ?,
				is_draft = ?, updated_at = ?
			WHERE id = ?`,
			a.Title, a.Image, a.Content, string(a.Status), a.RejectionReason, a.IsDraft, a.UpdatedAt, a.ID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return storage.ErrArticleNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, a.ID); err != nil {
			return err
		}

		return insertTags(ctx, tx, a.ID, a.Tags)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) UpdateStatus(ctx context.Context, newsID string, status models.Status, reason string, updatedAt time.Time) error {
	const op = "storage.sqlite.UpdateStatus"

	stmt, err := s.db.PrepareContext(ctx,
		`UPDATE articles SET status = ?, rejection_reason = ?, updated_at = ? WHERE news_id = ?`)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, string(status), reason, updatedAt, newsID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return expectAffected(res, op, storage.ErrArticleNotFound)
}

// Articles lists articles matching f, newest first.
func (s *Storage) Articles(ctx context.Context, f storage.ArticleFilter) ([]models.Article, error) {
	const op = "storage.sqlite.Articles"

	var (
		where []string
		args  []any
	)

	if f.Status != "" {
		where, args = append(where, "a.status = ?"), append(args, string(f.Status))
	}
	if f.Draft != nil {
		where, args = append(where, "a.is_draft = ?"), append(args, *f.Draft)
	}
	if f.AuthorID != "" {
		where, args = append(where, "a.author_id = ?"), append(args, f.AuthorID)
	}
	if f.Tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM article_tags t WHERE t.article_id = a.id AND t.tag = ?)")
		args = append(args, f.Tag)
	}

	query := `SELECT ` + articleColumns + ` FROM articles a`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	arts := []models.Article{}
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		arts = append(arts, art)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return arts, nil
}

// TopAuthors counts published, non-draft articles per author.
func (s *Storage) TopAuthors(ctx context.Context, limit int) ([]models.AuthorCount, error) {
	const op = "storage.sqlite.TopAuthors"

	rows, err := s.db.QueryContext(ctx, `
		SELECT author_id, MAX(author_name), COUNT(*) AS n
		FROM articles
		WHERE status = ? AND is_draft = 0
		GROUP BY author_id
		ORDER BY n DESC, author_id
		LIMIT ?`, string(models.StatusPublished), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []models.AuthorCount{}
	for rows.Next() {
		var c models.AuthorCount
		if err := rows.Scan(&c.AuthorID, &c.AuthorName, &c.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// TopCategories counts published, non-draft articles per tag.
func (s *Storage) TopCategories(ctx context.Context, limit int) ([]models.TagCount, error) {
	const op = "storage.sqlite.TopCategories"

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tag, COUNT(*) AS n
		FROM article_tags t
		JOIN articles a ON a.id = t.article_id
		WHERE a.status = ? AND a.is_draft = 0
		GROUP BY t.tag
		ORDER BY n DESC, t.tag
		LIMIT ?`, string(models.StatusPublished), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []models.TagCount{}
	for rows.Next() {
		var c models.TagCount
		if err := rows.Scan(&c.Tag, &c.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func insertTags(ctx context.Context, tx DBTX, articleID int64, tags []string) error {
	for _, tag := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO article_tags (article_id, tag) VALUES (?, ?)`, articleID, tag)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanArticle(row scanner) (models.Article, error) {
	var (
		a      models.Article
		status string
		tags   sql.NullString
	)

	err := row.Scan(&a.ID, &a.NewsID, &a.Title, &a.Image, &a.Content, &a.AuthorID, &a.AuthorName,
		&status, &a.RejectionReason, &a.IsDraft, &a.CreatedAt, &a.UpdatedAt, &tags)
	if err != nil {
		return models.Article{}, err
	}

	a.Status = models.Status(status)
	a.Tags = splitTags(tags.String)

	return a, nil
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	tags := strings.Split(s, tagSep)
	sort.Strings(tags)
	return tags
}
