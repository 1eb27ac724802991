// Package guard authenticates bearer tokens and applies access predicates
// ahead of protected handlers.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"news-api/internal/domain/models"
	"news-api/internal/lib/access"
	resp "news-api/internal/lib/api/response"
	"news-api/internal/lib/jwt"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/lib/shortid"
	"news-api/internal/service/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type ctxKey struct{}

type UserProvider interface {
	User(ctx context.Context, id int64) (models.User, error)
}

type Guard struct {
	log       *slog.Logger
	tokenAuth *jwtauth.JWTAuth
	users     UserProvider
}

func New(log *slog.Logger, secret string, users UserProvider) *Guard {
	return &Guard{
		log:       log,
		tokenAuth: jwtauth.New("HS256", []byte(secret), nil),
		users:     users,
	}
}

// Protect requires a valid bearer token on every route of r and loads the
// token's account into the request context.
func (g *Guard) Protect(r chi.Router) {
	r.Use(jwtauth.Verifier(g.tokenAuth))
	r.Use(jwtauth.Authenticator(g.tokenAuth))
	r.Use(g.LoadUser)
}

// LoadUser resolves the uid claim to a live account. Tokens of deleted
// accounts are refused.
func (g *Guard) LoadUser(next http.Handler) http.Handler {
	const op = "middleware.guard.LoadUser"

	log := g.log.With(slog.String("op", op))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := jwt.UIDFromContext(r.Context())
		if err != nil {
			log.Info("token without uid", sl.Error(err))
			resp.Error(w, r, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		u, err := g.users.User(r.Context(), uid)
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				resp.Error(w, r, http.StatusUnauthorized, "Not authorized, user not found")
				return
			}
			log.Error("failed to load user", sl.Error(err))
			resp.Error(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// Require answers 403 with msg unless the current account satisfies pred.
func Require(pred access.Predicate, msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok || !pred(u) {
				resp.Error(w, r, http.StatusForbidden, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return Require(access.IsAdmin, "Access denied, admin only")(next)
}

func RequireVerified(next http.Handler) http.Handler {
	return Require(access.IsVerifiedOrAdmin, "Your account is not verified yet")(next)
}

// ValidCode answers 404 with msg when the URL parameter param is not shaped
// like a generated news or user code.
func ValidCode(param, msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !shortid.Valid(chi.URLParam(r, param)) {
				resp.Error(w, r, http.StatusNotFound, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}
