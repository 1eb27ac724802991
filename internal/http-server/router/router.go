package router

import (
	"log/slog"
	"net/http"

	"news-api/internal/http-server/handlers/admin"
	"news-api/internal/http-server/handlers/article"
	"news-api/internal/http-server/handlers/dev"
	"news-api/internal/http-server/handlers/user"
	"news-api/internal/http-server/middleware/guard"
	mwLogger "news-api/internal/http-server/middleware/logger"
	articleservice "news-api/internal/service/article"
	userservice "news-api/internal/service/user"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Env      string
	Secret   string
	Sessions *scs.SessionManager
	Users    *userservice.Service
	Articles *articleservice.Service
	// UploadsDir is served under /uploads when set.
	UploadsDir string
}

func New(log *slog.Logger, d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New(log))
	r.Use(middleware.Recoverer)

	g := guard.New(log, d.Secret, d.Users)

	usr := user.New(log, d.Users, g, d.Sessions.LoadAndSave)
	art := article.New(log, d.Articles, g)
	adm := admin.New(log, d.Articles, d.Users, g)
	dv := dev.New(log, d.Env, d.Articles, d.Users)

	r.Route("/auth", usr.Register())
	r.Route("/news", art.Register())
	r.Route("/admin", adm.Register())
	r.Route("/dev", dv.Register())

	if d.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadsDir))))
	}

	return r
}
