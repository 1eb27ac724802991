package article

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"news-api/internal/blob"
	"news-api/internal/domain/models"
	"news-api/internal/lib/access"
	"news-api/internal/lib/api/request"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/lib/shortid"
	"news-api/internal/lib/validation"
	"news-api/internal/storage"
)

const topLimit = 10

var (
	ErrArticleNotFound    = errors.New("article not found")
	ErrForbidden          = errors.New("not allowed to modify this article")
	ErrNotVerified        = errors.New("account is not verified")
	ErrMissingAttachments = errors.New("both image and content files are required")
)

type Storage interface {
	SaveArticle(ctx context.Context, a models.Article) (int64, error)
	NewsIDExists(ctx context.Context, newsID string) (bool, error)
	Article(ctx context.Context, newsID string) (models.Article, error)
	UpdateArticle(ctx context.Context, a models.Article) error
	UpdateStatus(ctx context.Context, newsID string, status models.Status, reason string, updatedAt time.Time) error
	Articles(ctx context.Context, f storage.ArticleFilter) ([]models.Article, error)
	TopAuthors(ctx context.Context, limit int) ([]models.AuthorCount, error)
	TopCategories(ctx context.Context, limit int) ([]models.TagCount, error)
	ArchiveArticle(ctx context.Context, a models.Article, deletedAt time.Time) error
	DeleteArticle(ctx context.Context, newsID string) error
	ArchivedArticle(ctx context.Context, newsID string) (models.ArchivedArticle, error)
	ArchivedArticles(ctx context.Context) ([]models.ArchivedArticle, error)
}

// Attachments are the files sent with a create or edit. A nil file is
// missing on create and unchanged on edit.
type Attachments struct {
	Image   *blob.File
	Content *blob.File
}

type Service struct {
	log      *slog.Logger
	storage  Storage
	uploader blob.Uploader
	now      func() time.Time
}

func New(log *slog.Logger, storage Storage, uploader blob.Uploader) *Service {
	return &Service{
		log:      log,
		storage:  storage,
		uploader: uploader,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new submission by author in the pending state.
func (s *Service) Create(ctx context.Context, author models.User, req request.Article, files Attachments) (models.Article, error) {
	const op = "service.article.Create"

	log := s.log.With(slog.String("op", op), slog.String("author_id", author.UserID))

	if !access.IsVerifiedOrAdmin(author) {
		return models.Article{}, fmt.Errorf("%s: %w", op, ErrNotVerified)
	}

	req.Title = strings.TrimSpace(req.Title)

	if err := validation.Struct(req); err != nil {
		return models.Article{}, err
	}

	if files.Image == nil || files.Content == nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, ErrMissingAttachments)
	}

	imageURL, err := s.uploader.Upload(ctx, *files.Image)
	if err != nil {
		log.Error("failed to upload image", sl.Error(err))
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	contentURL, err := s.uploader.Upload(ctx, *files.Content)
	if err != nil {
		log.Error("failed to upload content", sl.Error(err))
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()
	art := models.Article{
		Title:      req.Title,
		Tags:       normalizeTags(req.Tags),
		Image:      imageURL,
		Content:    contentURL,
		AuthorID:   author.UserID,
		AuthorName: author.FullName,
		Status:     models.StatusPending,
		IsDraft:    req.IsDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for {
		newsID, err := shortid.Generate(ctx, s.storage.NewsIDExists)
		if err != nil {
			log.Error("failed to generate news id", sl.Error(err))
			return models.Article{}, fmt.Errorf("%s: %w", op, err)
		}
		art.NewsID = newsID

		id, err := s.storage.SaveArticle(ctx, art)
		if errors.Is(err, storage.ErrArticleExists) {
			log.Warn("news id taken concurrently, regenerating", slog.String("news_id", newsID))
			continue
		}
		if err != nil {
			log.Error("failed to save article", sl.Error(err))
			return models.Article{}, fmt.Errorf("%s: %w", op, err)
		}

		art.ID = id
		break
	}

	log.Info("article submitted", slog.String("news_id", art.NewsID))

	return art, nil
}

// Edit applies the owner's changes and sends the article back to moderation.
func (s *Service) Edit(ctx context.Context, editor models.User, newsID string, req request.ArticleEdit, files Attachments) (models.Article, error) {
	const op = "service.article.Edit"

	log := s.log.With(slog.String("op", op), slog.String("news_id", newsID))

	if !access.IsVerifiedOrAdmin(editor) {
		return models.Article{}, fmt.Errorf("%s: %w", op, ErrNotVerified)
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}

	if err := validation.Struct(req); err != nil {
		return models.Article{}, err
	}

	art, err := s.article(ctx, newsID)
	if err != nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	if !access.All(access.IsOwner(art), access.IsVerifiedOrAdmin)(editor) {
		return models.Article{}, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if files.Image != nil {
		if art.Image, err = s.uploader.Upload(ctx, *files.Image); err != nil {
			log.Error("failed to upload image", sl.Error(err))
			return models.Article{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	if files.Content != nil {
		if art.Content, err = s.uploader.Upload(ctx, *files.Content); err != nil {
			log.Error("failed to upload content", sl.Error(err))
			return models.Article{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if req.Title != nil {
		art.Title = *req.Title
	}
	if req.Tags != nil {
		art.Tags = normalizeTags(req.Tags)
	}
	if req.IsDraft != nil {
		art.IsDraft = *req.IsDraft
	}

	// Every edit re-enters moderation.
	art.Status = models.StatusPending
	art.RejectionReason = ""
	art.UpdatedAt = s.now()

	if err := s.storage.UpdateArticle(ctx, art); err != nil {
		if errors.Is(err, storage.ErrArticleNotFound) {
			return models.Article{}, fmt.Errorf("%s: %w", op, ErrArticleNotFound)
		}
		log.Error("failed to update article", sl.Error(err))
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("article edited")

	return art, nil
}

func (s *Service) Approve(ctx context.Context, newsID string) (models.Article, error) {
	const op = "service.article.Approve"

	art, err := s.setStatus(ctx, newsID, models.StatusPublished, "")
	if err != nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	return art, nil
}

// Reject marks the article rejected. An empty reason is replaced with
// models.DefaultRejectionReason.
func (s *Service) Reject(ctx context.Context, newsID, reason string) (models.Article, error) {
	const op = "service.article.Reject"

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultRejectionReason
	}

	art, err := s.setStatus(ctx, newsID, models.StatusRejected, reason)
	if err != nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	return art, nil
}

func (s *Service) setStatus(ctx context.Context, newsID string, status models.Status, reason string) (models.Article, error) {
	log := s.log.With(slog.String("news_id", newsID), slog.String("status", string(status)))

	if err := s.storage.UpdateStatus(ctx, newsID, status, reason, s.now()); err != nil {
		if errors.Is(err, storage.ErrArticleNotFound) {
			return models.Article{}, ErrArticleNotFound
		}
		log.Error("failed to update status", sl.Error(err))
		return models.Article{}, err
	}

	log.Info("article moderated")

	return s.article(ctx, newsID)
}

// ByID returns an article regardless of its status.
func (s *Service) ByID(ctx context.Context, newsID string) (models.Article, error) {
	const op = "service.article.ByID"

	art, err := s.article(ctx, newsID)
	if err != nil {
		return models.Article{}, fmt.Errorf("%s: %w", op, err)
	}

	return art, nil
}

func (s *Service) article(ctx context.Context, newsID string) (models.Article, error) {
	art, err := s.storage.Article(ctx, newsID)
	if err != nil {
		if errors.Is(err, storage.ErrArticleNotFound) {
			return models.Article{}, ErrArticleNotFound
		}
		s.log.Error("failed to get article", slog.String("news_id", newsID), sl.Error(err))
		return models.Article{}, err
	}

	return art, nil
}

// Public lists published, non-draft articles.
func (s *Service) Public(ctx context.Context) ([]models.Article, error) {
	return s.list(ctx, "service.article.Public", storage.ArticleFilter{}.Public())
}

func (s *Service) ByTag(ctx context.Context, tag string) ([]models.Article, error) {
	return s.list(ctx, "service.article.ByTag", storage.ArticleFilter{Tag: strings.ToLower(strings.TrimSpace(tag))}.Public())
}

func (s *Service) ByAuthor(ctx context.Context, authorID string) ([]models.Article, error) {
	return s.list(ctx, "service.article.ByAuthor", storage.ArticleFilter{AuthorID: authorID}.Public())
}

// Own lists every article of author whatever its status.
func (s *Service) Own(ctx context.Context, author models.User) ([]models.Article, error) {
	return s.list(ctx, "service.article.Own", storage.ArticleFilter{AuthorID: author.UserID})
}

func (s *Service) Drafts(ctx context.Context, author models.User) ([]models.Article, error) {
	draft := true
	return s.list(ctx, "service.article.Drafts", storage.ArticleFilter{AuthorID: author.UserID, Draft: &draft})
}

// Pending is the moderation queue. Drafts are included.
func (s *Service) Pending(ctx context.Context) ([]models.Article, error) {
	return s.list(ctx, "service.article.Pending", storage.ArticleFilter{Status: models.StatusPending})
}

// Latest returns the newest articles of any status.
func (s *Service) Latest(ctx context.Context, limit int) ([]models.Article, error) {
	return s.list(ctx, "service.article.Latest", storage.ArticleFilter{Limit: limit})
}

func (s *Service) list(ctx context.Context, op string, f storage.ArticleFilter) ([]models.Article, error) {
	arts, err := s.storage.Articles(ctx, f)
	if err != nil {
		s.log.Error("failed to list articles", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return arts, nil
}

func (s *Service) TopAuthors(ctx context.Context) ([]models.AuthorCount, error) {
	const op = "service.article.TopAuthors"

	top, err := s.storage.TopAuthors(ctx, topLimit)
	if err != nil {
		s.log.Error("failed to count authors", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return top, nil
}

func (s *Service) TopCategories(ctx context.Context) ([]models.TagCount, error) {
	const op = "service.article.TopCategories"

	top, err := s.storage.TopCategories(ctx, topLimit)
	if err != nil {
		s.log.Error("failed to count categories", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return top, nil
}

// Delete archives the article and removes it from the live store. Only the
// owner or an admin may delete. Replays after a partial failure finish the
// removal, and deleting an already archived article succeeds.
func (s *Service) Delete(ctx context.Context, actor models.User, newsID string) error {
	const op = "service.article.Delete"

	log := s.log.With(slog.String("op", op), slog.String("news_id", newsID))

	canDelete := func(a models.Article) bool {
		return access.Any(access.IsAdmin, access.IsOwner(a))(actor)
	}

	art, err := s.article(ctx, newsID)
	if err != nil {
		if !errors.Is(err, ErrArticleNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}

		archived, aerr := s.storage.ArchivedArticle(ctx, newsID)
		if errors.Is(aerr, storage.ErrArticleNotFound) {
			return fmt.Errorf("%s: %w", op, ErrArticleNotFound)
		}
		if aerr != nil {
			log.Error("failed to get archived article", sl.Error(aerr))
			return fmt.Errorf("%s: %w", op, aerr)
		}
		if !canDelete(archived.Article) {
			return fmt.Errorf("%s: %w", op, ErrForbidden)
		}
		return nil
	}

	if !canDelete(art) {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if err := s.storage.ArchiveArticle(ctx, art, s.now()); err != nil {
		log.Error("failed to archive article", sl.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteArticle(ctx, newsID); err != nil && !errors.Is(err, storage.ErrArticleNotFound) {
		log.Error("article archived but not removed", sl.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("article archived and removed", slog.String("by", actor.UserID))

	return nil
}

func (s *Service) DeletedArticles(ctx context.Context) ([]models.ArchivedArticle, error) {
	const op = "service.article.DeletedArticles"

	arts, err := s.storage.ArchivedArticles(ctx)
	if err != nil {
		s.log.Error("failed to list deleted articles", slog.String("op", op), sl.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return arts, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
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
