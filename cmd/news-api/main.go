package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"news-api/internal/blob"
	"news-api/internal/blob/local"
	"news-api/internal/blob/s3"
	"news-api/internal/config"
	"news-api/internal/http-server/router"
	"news-api/internal/lib/logger"
	"news-api/internal/lib/logger/sl"
	articleservice "news-api/internal/service/article"
	userservice "news-api/internal/service/user"
	"news-api/internal/session"
	"news-api/internal/storage/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.Env)

	log.Debug("initializing server...", slog.String("addr", cfg.Address))

	// Init storage
	storage, err := sqlite.New(cfg.StoragePath)
	if err != nil {
		log.Error("error opening storage", sl.Error(err))
		os.Exit(1)
	}
	defer storage.Close()

	sessions, err := session.New(cfg.Session, storage.DB())
	if err != nil {
		log.Error("error initializing sessions", sl.Error(err))
		os.Exit(1)
	}

	uploader, err := newUploader(context.Background(), cfg.Blob)
	if err != nil {
		log.Error("error initializing blob storage", sl.Error(err))
		os.Exit(1)
	}

	// Init service layer
	usrService := userservice.New(log, storage, sessions, cfg.TokenTTL, cfg.Secret, cfg.PasswordCost)
	artService := articleservice.New(log, storage, uploader)

	if err := usrService.PromoteAdmins(context.Background(), cfg.AdminEmails); err != nil {
		log.Error("error promoting admins", sl.Error(err))
		os.Exit(1)
	}

	deps := router.Deps{
		Env:      cfg.Env,
		Secret:   cfg.Secret,
		Sessions: sessions,
		Users:    usrService,
		Articles: artService,
	}
	if cfg.Blob.Driver == "local" {
		deps.UploadsDir = cfg.Blob.Local.Dir
	}

	r := router.New(log, deps)

	srv := http.Server{
		Handler:      r,
		Addr:         cfg.Address,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	log.Debug("server initialized")
	log.Info("server is running...", slog.String("addr", cfg.Address))

	// Gracefully shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("error starting server", sl.Error(err))
			done <- syscall.SIGTERM
		}
	}()

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("error stopping server", sl.Error(err))
	}

	log.Info("server stopped")
}

func newUploader(ctx context.Context, cfg config.Blob) (blob.Uploader, error) {
	switch cfg.Driver {
	case "local":
		return local.New(cfg.Local.Dir, cfg.Local.BaseURL, cfg.Folder), nil
	case "s3":
		store, err := s3.New(ctx, s3.Options{
			Bucket:        cfg.S3.Bucket,
			Region:        cfg.S3.Region,
			Endpoint:      cfg.S3.Endpoint,
			AccessKey:     cfg.S3.AccessKey,
			SecretKey:     cfg.S3.SecretKey,
			PublicBaseURL: cfg.S3.PublicBaseURL,
			Folder:        cfg.Folder,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
