package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"news-api/internal/domain/models"
	"news-api/internal/http-server/middleware/guard"
	req "news-api/internal/lib/api/request"
	resp "news-api/internal/lib/api/response"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/lib/validation"
	"news-api/internal/service/user"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type Service interface {
	RegisterStep1(ctx context.Context, r req.RegisterStep1) error
	RegisterStep2(ctx context.Context, r req.RegisterStep2) error
	RegisterStep3(ctx context.Context, r req.RegisterStep3) error
	FinalizeRegistration(ctx context.Context) (string, models.User, error)
	RegistrationState(ctx context.Context) user.RegistrationState
	DestroyRegistration(ctx context.Context) error
	Login(ctx context.Context, email, password string) (string, error)
	UpdateProfile(ctx context.Context, id int64, upd req.ProfileUpdate) (models.User, error)
	Delete(ctx context.Context, userID string) error
}

type User struct {
	log      *slog.Logger
	service  Service
	guard    *guard.Guard
	sessions func(http.Handler) http.Handler
}

// New wires the auth routes. sessions loads and saves the registration
// session around each registration request.
func New(log *slog.Logger, service Service, guard *guard.Guard, sessions func(http.Handler) http.Handler) *User {
	return &User{
		log:      log,
		service:  service,
		guard:    guard,
		sessions: sessions,
	}
}

func (u *User) Register() func(r chi.Router) {
	return func(r chi.Router) {
		// Public routes
		r.Post("/login", u.login)

		// Registration keeps its state in the session
		r.Group(func(r chi.Router) {
			r.Use(u.sessions)

			r.Post("/register/step1", u.registerStep1)
			r.Post("/register/step2", u.registerStep2)
			r.Post("/register/step3", u.registerStep3)
			r.Post("/register/finalize", u.finalize)
			r.Get("/session", u.session)
			r.Post("/register/destroy-session", u.destroySession)
			r.Get("/register/destroy-session", u.destroySession)
		})

		// Require auth
		r.Group(func(r chi.Router) {
			u.guard.Protect(r)

			r.Get("/profile", u.profile)
			r.Put("/profile", u.updateProfile)
			r.Delete("/profile", u.deleteProfile)
		})
	}
}

func (u *User) login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.login"

	log := u.log.With(slog.String("op", op))

	var cred req.Credentials
	if err := render.DecodeJSON(r.Body, &cred); err != nil {
		log.Info("failed to decode request", sl.Error(err))
		resp.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if cred.Email == "" || cred.Password == "" {
		resp.Error(w, r, http.StatusBadRequest, "Please provide email and password")
		return
	}

	token, err := u.service.Login(r.Context(), cred.Email, cred.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			resp.Error(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		resp.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "Login successful",
		Token:   token,
	})
}

func (u *User) registerStep1(w http.ResponseWriter, r *http.Request) {
	var body req.RegisterStep1
	if !u.decode(w, r, "handlers.user.registerStep1", &body) {
		return
	}

	u.respondStep(w, r, u.service.RegisterStep1(r.Context(), body), "Step 1 completed")
}

func (u *User) registerStep2(w http.ResponseWriter, r *http.Request) {
	var body req.RegisterStep2
	if !u.decode(w, r, "handlers.user.registerStep2", &body) {
		return
	}

	u.respondStep(w, r, u.service.RegisterStep2(r.Context(), body), "Step 2 completed")
}

func (u *User) registerStep3(w http.ResponseWriter, r *http.Request) {
	var body req.RegisterStep3
	if !u.decode(w, r, "handlers.user.registerStep3", &body) {
		return
	}

	u.respondStep(w, r, u.service.RegisterStep3(r.Context(), body), "Step 3 completed")
}

func (u *User) finalize(w http.ResponseWriter, r *http.Request) {
	token, usr, err := u.service.FinalizeRegistration(r.Context())
	if err != nil {
		u.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "Registration completed",
		Token:   token,
		User:    &usr,
	})
}

type sessionResponse struct {
	Message string `json:"message"`
	user.RegistrationState
}

func (u *User) session(w http.ResponseWriter, r *http.Request) {
	state := u.service.RegistrationState(r.Context())

	msg := "Session data not found"
	if state.Step1 != nil || state.Step2 != nil || state.Step3 != nil {
		msg = "Session data exists"
	}

	render.JSON(w, r, sessionResponse{Message: msg, RegistrationState: state})
}

func (u *User) destroySession(w http.ResponseWriter, r *http.Request) {
	if err := u.service.DestroyRegistration(r.Context()); err != nil {
		resp.Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	render.JSON(w, r, resp.OK("Registration session destroyed"))
}

func (u *User) profile(w http.ResponseWriter, r *http.Request) {
	usr, _ := guard.UserFromContext(r.Context())

	render.JSON(w, r, resp.Response{
		Status: resp.StatusOk,
		User:   &usr,
	})
}

func (u *User) updateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.updateProfile"

	var upd req.ProfileUpdate
	if !u.decode(w, r, op, &upd) {
		return
	}

	current, _ := guard.UserFromContext(r.Context())

	usr, err := u.service.UpdateProfile(r.Context(), current.ID, upd)
	if err != nil {
		u.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "Profile updated",
		User:    &usr,
	})
}

func (u *User) deleteProfile(w http.ResponseWriter, r *http.Request) {
	current, _ := guard.UserFromContext(r.Context())

	if err := u.service.Delete(r.Context(), current.UserID); err != nil {
		u.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.OK("Account deleted"))
}

func (u *User) decode(w http.ResponseWriter, r *http.Request, op string, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		u.log.Info("failed to decode request", slog.String("op", op), sl.Error(err))
		resp.Error(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (u *User) respondStep(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if err != nil {
		u.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.OK(msg))
}

func (u *User) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors

	switch {
	case errors.As(err, &verrs):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(verrs))
	case errors.Is(err, user.ErrEmailTaken):
		resp.Error(w, r, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, user.ErrIncompleteRegistration):
		resp.Error(w, r, http.StatusBadRequest, "Please complete all registration steps")
	case errors.Is(err, user.ErrUserNotFound):
		resp.Error(w, r, http.StatusNotFound, "User not found")
	default:
		u.log.Error("request failed", sl.Error(err))
		resp.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
