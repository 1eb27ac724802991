package response

import (
	"net/http"

	"news-api/internal/domain/models"
	"news-api/internal/lib/validation"

	"github.com/go-chi/render"
)

const (
	StatusOk    = "OK"
	StatusError = "Error"
)

type Response struct {
	Status  string                  `json:"status"`
	Message string                  `json:"message,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
	Token   string                  `json:"token,omitempty"`
	User    *models.User            `json:"user,omitempty"`
	News    *models.Article         `json:"news,omitempty"`
}

func OK(msg string) Response {
	return Response{
		Status:  StatusOk,
		Message: msg,
	}
}

func Err(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}

func ValidationError(errs validation.Errors) Response {
	return Response{
		Status: StatusError,
		Error:  "Validation failed",
		Errors: errs,
	}
}

// Error writes an error body with the given HTTP status code.
func Error(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, Err(msg))
}
