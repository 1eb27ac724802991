package article

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"news-api/internal/blob"
	"news-api/internal/domain/models"
	"news-api/internal/http-server/middleware/guard"
	req "news-api/internal/lib/api/request"
	resp "news-api/internal/lib/api/response"
	"news-api/internal/lib/logger/sl"
	"news-api/internal/lib/validation"
	"news-api/internal/service/article"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const (
	maxUploadSize = 32 << 20

	fieldImage   = "imageFile"
	fieldContent = "contentFile"
)

type Service interface {
	Create(ctx context.Context, author models.User, r req.Article, files article.Attachments) (models.Article, error)
	Edit(ctx context.Context, editor models.User, newsID string, r req.ArticleEdit, files article.Attachments) (models.Article, error)
	Delete(ctx context.Context, actor models.User, newsID string) error
	ByID(ctx context.Context, newsID string) (models.Article, error)
	Public(ctx context.Context) ([]models.Article, error)
	ByTag(ctx context.Context, tag string) ([]models.Article, error)
	ByAuthor(ctx context.Context, authorID string) ([]models.Article, error)
	Own(ctx context.Context, author models.User) ([]models.Article, error)
	Drafts(ctx context.Context, author models.User) ([]models.Article, error)
	TopAuthors(ctx context.Context) ([]models.AuthorCount, error)
	TopCategories(ctx context.Context) ([]models.TagCount, error)
}

type Article struct {
	log     *slog.Logger
	service Service
	guard   *guard.Guard
}

func New(log *slog.Logger, service Service, guard *guard.Guard) *Article {
	return &Article{
		log:     log,
		service: service,
		guard:   guard,
	}
}

func (a *Article) Register() func(r chi.Router) {
	newsID := guard.ValidCode("newsId", "News not found")

	return func(r chi.Router) {
		// Public routes
		r.Get("/public/news", a.public)
		r.Get("/tags/{tag}", a.byTag)
		r.Get("/author/{authorId}", a.byAuthor)
		r.Get("/top-authors", a.topAuthors)
		r.Get("/top-categories", a.topCategories)
		r.With(newsID).Get("/{newsId}", a.byID)

		// Require auth
		r.Group(func(r chi.Router) {
			a.guard.Protect(r)

			r.With(guard.RequireVerified).Post("/", a.create)
			r.With(newsID, guard.RequireVerified).Put("/{newsId}/edit", a.edit)
			r.With(newsID).Delete("/{newsId}", a.remove)
			r.Get("/author", a.own)
			r.Get("/drafts", a.drafts)
		})
	}
}

func (a *Article) create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.article.create"

	log := a.log.With(slog.String("op", op))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		log.Info("failed to parse multipart form", sl.Error(err))
		resp.Error(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	body := req.Article{
		Title: r.FormValue("title"),
		Tags:  parseTags(r.MultipartForm.Value["tags"]),
	}
	if v := r.FormValue("isDraft"); v != "" {
		draft, err := strconv.ParseBool(v)
		if err != nil {
			resp.Error(w, r, http.StatusBadRequest, "isDraft must be a boolean")
			return
		}
		body.IsDraft = draft
	}

	files, closeFiles, err := formFiles(r)
	if err != nil {
		log.Error("failed to open uploaded files", sl.Error(err))
		resp.Error(w, r, http.StatusBadRequest, "invalid uploaded file")
		return
	}
	defer closeFiles()

	author, _ := guard.UserFromContext(r.Context())

	art, err := a.service.Create(r.Context(), author, body, files)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "News created successfully",
		News:    &art,
	})
}

// edit accepts either a multipart form, which may carry replacement files,
// or a JSON body with text fields only.
func (a *Article) edit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.article.edit"

	log := a.log.With(slog.String("op", op))

	var (
		body  req.ArticleEdit
		files article.Attachments
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			log.Info("failed to parse multipart form", sl.Error(err))
			resp.Error(w, r, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		form := r.MultipartForm.Value
		if v, ok := form["title"]; ok && len(v) > 0 {
			body.Title = &v[0]
		}
		if v, ok := form["tags"]; ok {
			body.Tags = parseTags(v)
		}
		if v, ok := form["isDraft"]; ok && len(v) > 0 {
			draft, err := strconv.ParseBool(v[0])
			if err != nil {
				resp.Error(w, r, http.StatusBadRequest, "isDraft must be a boolean")
				return
			}
			body.IsDraft = &draft
		}

		var (
			closeFiles func()
			err        error
		)
		files, closeFiles, err = formFiles(r)
		if err != nil {
			log.Error("failed to open uploaded files", sl.Error(err))
			resp.Error(w, r, http.StatusBadRequest, "invalid uploaded file")
			return
		}
		defer closeFiles()
	} else if err := render.DecodeJSON(r.Body, &body); err != nil {
		log.Info("failed to decode request", sl.Error(err))
		resp.Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	editor, _ := guard.UserFromContext(r.Context())

	art, err := a.service.Edit(r.Context(), editor, chi.URLParam(r, "newsId"), body, files)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.Response{
		Status:  resp.StatusOk,
		Message: "News updated and sent for review",
		News:    &art,
	})
}

func (a *Article) remove(w http.ResponseWriter, r *http.Request) {
	actor, _ := guard.UserFromContext(r.Context())

	if err := a.service.Delete(r.Context(), actor, chi.URLParam(r, "newsId")); err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, resp.OK("News deleted successfully"))
}

func (a *Article) byID(w http.ResponseWriter, r *http.Request) {
	art, err := a.service.ByID(r.Context(), chi.URLParam(r, "newsId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, art)
}

func (a *Article) public(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, r)(a.service.Public(r.Context()))
}

func (a *Article) byTag(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, r)(a.service.ByTag(r.Context(), chi.URLParam(r, "tag")))
}

func (a *Article) byAuthor(w http.ResponseWriter, r *http.Request) {
	a.writeList(w, r)(a.service.ByAuthor(r.Context(), chi.URLParam(r, "authorId")))
}

func (a *Article) own(w http.ResponseWriter, r *http.Request) {
	author, _ := guard.UserFromContext(r.Context())
	a.writeList(w, r)(a.service.Own(r.Context(), author))
}

func (a *Article) drafts(w http.ResponseWriter, r *http.Request) {
	author, _ := guard.UserFromContext(r.Context())
	a.writeList(w, r)(a.service.Drafts(r.Context(), author))
}

func (a *Article) topAuthors(w http.ResponseWriter, r *http.Request) {
	top, err := a.service.TopAuthors(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, top)
}

func (a *Article) topCategories(w http.ResponseWriter, r *http.Request) {
	top, err := a.service.TopCategories(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	render.JSON(w, r, top)
}

func (a *Article) writeList(w http.ResponseWriter, r *http.Request) func([]models.Article, error) {
	return func(arts []models.Article, err error) {
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if arts == nil {
			arts = []models.Article{}
		}
		render.JSON(w, r, arts)
	}
}

func (a *Article) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors

	switch {
	case errors.As(err, &verrs):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.ValidationError(verrs))
	case errors.Is(err, article.ErrMissingAttachments):
		resp.Error(w, r, http.StatusBadRequest, "Both PDF and image files are required.")
	case errors.Is(err, article.ErrArticleNotFound):
		resp.Error(w, r, http.StatusNotFound, "News not found")
	case errors.Is(err, article.ErrNotVerified):
		resp.Error(w, r, http.StatusForbidden, "Your account is not verified yet")
	case errors.Is(err, article.ErrForbidden):
		resp.Error(w, r, http.StatusForbidden, "You are not allowed to modify this news")
	default:
		a.log.Error("request failed", sl.Error(err))
		resp.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

// parseTags accepts repeated form values, comma separated lists and JSON
// arrays.
func parseTags(values []string) []string {
	tags := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(v), &arr); err == nil {
				tags = append(tags, arr...)
				continue
			}
		}
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}

// formFiles opens the optional image and content parts of the form.
func formFiles(r *http.Request) (article.Attachments, func(), error) {
	var (
		files  article.Attachments
		opened []multipart.File
	)
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	open := func(field string) (*blob.File, error) {
		if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
			return nil, nil
		}
		fh := r.MultipartForm.File[field][0]
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		opened = append(opened, f)
		return &blob.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		}, nil
	}

	var err error
	if files.Image, err = open(fieldImage); err != nil {
		closeAll()
		return article.Attachments{}, func() {}, err
	}
	if files.Content, err = open(fieldContent); err != nil {
		closeAll()
		return article.Attachments{}, func() {}, err
	}

	return files, closeAll, nil
}
