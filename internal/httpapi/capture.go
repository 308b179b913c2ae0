package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

// maxFormBytes bounds a survey or login POST body.
const maxFormBytes = 64 << 10

var ratingScale = []int{1, 2, 3, 4, 5}

type indexPage struct {
	Config models.SurveyConfig
	Points []models.CapturePoint
}

type formPage struct {
	Form    service.CaptureForm
	Fields  []service.RatingField
	Scale   []int
	Values  map[string]string
	Shift   string
	Comment string
	Errors  map[string][]string
}

type thanksPage struct {
	Config models.SurveyConfig
	Point  models.CapturePoint
}

func (h *Handler) indexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		cfg, err := h.configs.Get(ctx)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		points, err := h.recorder.ActiveCapturePoints(ctx)
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, "index.html", indexPage{Config: cfg, Points: points})
	}
}

func (h *Handler) formHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		form, err := h.recorder.Form(ctx, chi.URLParam(r, "identifier"))
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, "form.html", formPage{
			Form:   form,
			Fields: service.RatingFields,
			Scale:  ratingScale,
		})
	}
}

func (h *Handler) submitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := chi.URLParam(r, "identifier")

		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		in := service.SubmissionInput{
			Ratings: make(map[string]string, len(service.RatingFields)),
			Comment: r.PostForm.Get(service.FieldComment),
			Shift:   r.PostForm.Get(service.FieldShift),
		}
		for _, f := range service.RatingFields {
			if _, ok := r.PostForm[f.Name]; ok {
				in.Ratings[f.Name] = r.PostForm.Get(f.Name)
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		form, _, err := h.recorder.Submit(ctx, identifier, in)
		var verr *service.ValidationError
		switch {
		case err == nil:
			http.Redirect(w, r, "/tablet/"+url.PathEscape(identifier)+"/gracias/", http.StatusFound)
		case errors.As(err, &verr):
			h.logger.Debug("survey submission rejected",
				zap.String("capture_point", identifier),
				zap.Int("fields", len(verr.Fields)))
			h.render(w, r, http.StatusOK, "form.html", formPage{
				Form:    form,
				Fields:  service.RatingFields,
				Scale:   ratingScale,
				Values:  in.Ratings,
				Shift:   in.Shift,
				Comment: in.Comment,
				Errors:  verr.Fields,
			})
		default:
			h.pageError(w, r, err)
		}
	}
}

func (h *Handler) thanksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		point, cfg, err := h.recorder.Thanks(ctx, chi.URLParam(r, "identifier"))
		if err != nil {
			h.pageError(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, "thanks.html", thanksPage{Config: cfg, Point: point})
	}
}
