// Package dev exposes read-only inspection routes for non-production
// environments.
package dev

import (
	"context"
	"log/slog"
	"net/http"

	"news-api/internal/config"
	"news-api/internal/domain/models"
	resp "news-api/internal/lib/api/response"
	"news-api/internal/lib/logger/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const latestLimit = 10

type ArticleLister interface {
	Latest(ctx context.Context, limit int) ([]models.Article, error)
}

type UserLister interface {
	Latest(ctx context.Context, limit int) ([]models.User, error)
}

type Dev struct {
	log      *slog.Logger
	env      string
	articles ArticleLister
	users    UserLister
}

func New(log *slog.Logger, env string, articles ArticleLister, users UserLister) *Dev {
	return &Dev{
		log:      log,
		env:      env,
		articles: articles,
		users:    users,
	}
}

func (d *Dev) Register() func(r chi.Router) {
	return func(r chi.Router) {
		r.Use(d.devOnly)

		r.Get("/godmode/news", d.latestNews)
		r.Get("/godmode/account", d.latestAccounts)
	}
}

func (d *Dev) devOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.env == config.EnvProd {
			resp.Error(w, r, http.StatusForbidden, "God Mode is disabled in production")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type newsResponse struct {
	Total int              `json:"total"`
	News  []models.Article `json:"news"`
}

type accountsResponse struct {
	Total int           `json:"total"`
	Users []models.User `json:"users"`
}

func (d *Dev) latestNews(w http.ResponseWriter, r *http.Request) {
	arts, err := d.articles.Latest(r.Context(), latestLimit)
	if err != nil {
		d.log.Error("failed to fetch news", sl.Error(err))
		resp.Error(w, r, http.StatusInternalServerError, "Failed to fetch news")
		return
	}

	render.JSON(w, r, newsResponse{Total: len(arts), News: arts})
}

func (d *Dev) latestAccounts(w http.ResponseWriter, r *http.Request) {
	users, err := d.users.Latest(r.Context(), latestLimit)
	if err != nil {
		d.log.Error("failed to fetch accounts", sl.Error(err))
		resp.Error(w, r, http.StatusInternalServerError, "Failed to fetch accounts")
		return
	}

	render.JSON(w, r, accountsResponse{Total: len(users), Users: users})
}
