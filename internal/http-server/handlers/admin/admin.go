package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"news-api/internal/domain/models"
	"news-api/internal/http-server/middleware/guard"
	req "news-api/internal/lib/api/request"
	resp "news-api/internal/lib/api/response"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/service/article"
	"news-api/internal/service/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type ArticleService interface {
	Pending(ctx context.Context) ([]models.Article, error)
	Approve(ctx context.Context, newsID string) (models.Article, error)
	Reject(ctx context.Context, newsID, reason string) (models.Article, error)
	Delete(ctx context.Context, actor models.User, newsID string) error
	DeletedArticles(ctx context.Context) ([]models.ArchivedArticle, error)
}

type UserService interface {
	Authors(ctx context.Context, verified bool) ([]models.User, error)
	ApproveAuthor(ctx context.Context, userID string) (models.User, error)
	Delete(ctx context.Context, userID string) error
	DeletedUsers(ctx context.Context) ([]models.ArchivedUser, error)
}

type Admin struct {
	log      *slog.Logger
	articles ArticleService
	users    UserService
	guard    *guard.Guard
}

func New(log *slog.Logger, articles ArticleService, users UserService, guard *guard.Guard) *Admin {
	return &Admin{
		log:      log,
		articles: articles,
		users:    users,
		guard:    guard,
	}
}

func (a *Admin) Register() func(r chi.Router) {
	newsID := guard.ValidCode("newsId", "News not found")
	userID := guard.ValidCode("userId", "User not found")

	return func(r chi.Router) {
		a.guard.Protect(r)
		r.Use(guard.RequireAdmin)

		r.Get("/pending-news", a.pendingNews)
		r.With(newsID).Put("/approve/{newsId}", a.approveNews)
		r.With(newsID).Put("/reject/{newsId}", a.rejectNews)
		r.With(newsID).Delete("/news/{newsId}", a.deleteNews)
		r.Get("/deleted-news", a.deletedNews)

		r.Get("/authors/verified", a.authors(true))
		r.Get("/authors/unverified", a.authors(false))
		r.With(userID).Put("/authors/approve/{userId}", a.approveAuthor)
		r.With(userID).Delete("/author/{userId}", a.deleteAuthor)
		r.Get("/deleted-users", a.deletedUsers)
	}
}

func (a *Admin) pendingNews(w http.ResponseWriter, r *http.Request) {
	arts, err := a.articles.Pending(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, arts)
}

func (a *Admin) approveNews(w http.ResponseWriter, r *http.Request) {
	art, err := a.articles.Approve(r.Context(), chi.URLParam(r, "newsId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "News approved successfully",
		News:    &art,
	})
}

func (a *Admin) rejectNews(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.rejectNews"

	// The reason is optional, so is the body.
	var body req.Reject
	if err := render.DecodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		a.log.Info("failed to decode request", slog.String("op", op), sl.Error(err))
		resp.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	art, err := a.articles.Reject(r.Context(), chi.URLParam(r, "newsId"), body.Reason)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "News rejected successfully",
		News:    &art,
	})
}

func (a *Admin) deleteNews(w http.ResponseWriter, r *http.Request) {
	actor, _ := guard.UserFromContext(r.Context())

	if err := a.articles.Delete(r.Context(), actor, chi.URLParam(r, "newsId")); err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.OK("News deleted and archived successfully"))
}

func (a *Admin) deletedNews(w http.ResponseWriter, r *http.Request) {
	arts, err := a.articles.DeletedArticles(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, arts)
}

func (a *Admin) authors(verified bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := a.users.Authors(r.Context(), verified)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		render.JSON(w, r, users)
	}
}

func (a *Admin) approveAuthor(w http.ResponseWriter, r *http.Request) {
	usr, err := a.users.ApproveAuthor(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "Author verified successfully",
		User:    &usr,
	})
}

func (a *Admin) deleteAuthor(w http.ResponseWriter, r *http.Request) {
	if err := a.users.Delete(r.Context(), chi.URLParam(r, "userId")); err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.OK("User deleted and archived successfully"))
}

func (a *Admin) deletedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.users.DeletedUsers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, users)
}

func (a *Admin) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, article.ErrArticleNotFound):
		resp.Error(w, r, http.StatusNotFound, "News not found")
	case errors.Is(err, user.ErrUserNotFound):
		resp.Error(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, user.ErrAlreadyVerified):
		resp.Error(w, r, http.StatusConflict, "Author is already verified")
	case errors.Is(err, article.ErrForbidden):
		resp.Error(w, r, http.StatusForbidden, "You are not allowed to modify this news")
	default:
		a.log.Error("request failed", sl.Error(err))
		resp.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
