package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/repository/models"
	"github.com/godilite/cafeteria-survey/internal/service"
)

const maxJSONBytes = 1 << 20

// resource binds one catalog entity to its list, save and delete operations.
// newItem seeds a create before the body is decoded, so omitted fields keep
// their defaults.
type resource[T any] struct {
	newItem func() T
	list    func(ctx context.Context) ([]T, error)
	save    func(ctx context.Context, v T) (T, error)
	del     func(ctx context.Context, id int64) error
	setID   func(v *T, id int64)
}

func (h *Handler) registerCatalogAPI(r chi.Router) {
	mountResource(h, r, "/venues", resource[models.Venue]{
		newItem: func() models.Venue { return models.Venue{Active: true} },
		list:    h.catalog.ListVenues,
		save:    h.catalog.SaveVenue,
		del:     h.catalog.DeleteVenue,
		setID:   func(v *models.Venue, id int64) { v.ID = id },
	})
	mountResource(h, r, "/cafeterias", resource[models.Cafeteria]{
		newItem: func() models.Cafeteria { return models.Cafeteria{Active: true} },
		list:    h.catalog.ListCafeterias,
		save:    h.catalog.SaveCafeteria,
		del:     h.catalog.DeleteCafeteria,
		setID:   func(v *models.Cafeteria, id int64) { v.ID = id },
	})
	mountResource(h, r, "/shifts", resource[models.Shift]{
		newItem: func() models.Shift { return models.Shift{Active: true} },
		list:    h.catalog.ListShifts,
		save:    h.catalog.SaveShift,
		del:     h.catalog.DeleteShift,
		setID:   func(v *models.Shift, id int64) { v.ID = id },
	})
	mountResource(h, r, "/capture-points", resource[models.CapturePoint]{
		newItem: func() models.CapturePoint { return models.CapturePoint{Active: true} },
		list:    h.catalog.ListCapturePoints,
		save:    h.catalog.SaveCapturePoint,
		del:     h.catalog.DeleteCapturePoint,
		setID:   func(v *models.CapturePoint, id int64) { v.ID = id },
	})

	r.Get("/survey-config", h.getSurveyConfigHandler())
	r.Put("/survey-config", h.updateSurveyConfigHandler())
	r.Delete("/responses", h.resetResponsesHandler())
}

func mountResource[T any](h *Handler, r chi.Router, path string, res resource[T]) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()

			items, err := res.list(ctx)
			if err != nil {
				h.writeAPIError(w, r, err)
				return
			}
			if items == nil {
				items = []T{}
			}
			writeJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var v T
			if res.newItem != nil {
				v = res.newItem()
			}
			if !h.decodeJSON(w, r, &v) {
				return
			}
			res.setID(&v, 0)
			saveResource(h, w, r, http.StatusCreated, v, res.save)
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := h.pathID(w, r)
			if !ok {
				return
			}
			var v T
			if !h.decodeJSON(w, r, &v) {
				return
			}
			res.setID(&v, id)
			saveResource(h, w, r, http.StatusOK, v, res.save)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := h.pathID(w, r)
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()

			if err := res.del(ctx, id); err != nil {
				h.writeAPIError(w, r, err)
				return
			}
			h.auditLog(r, "deleted", zap.String("resource", path), zap.Int64("id", id))
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

func saveResource[T any](h *Handler, w http.ResponseWriter, r *http.Request, status int, v T, save func(context.Context, T) (T, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	saved, err := save(ctx, v)
	if err != nil {
		h.writeAPIError(w, r, err)
		return
	}
	h.auditLog(r, "saved", zap.String("path", r.URL.Path))
	writeJSON(h.logger, w, status, saved)
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.writeAPIError(w, r, service.NewValidationError(service.NonFieldErrors, "JSON inválido: "+err.Error()))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeAPIError(w, r, service.ErrNotFound)
		return 0, false
	}
	return id, true
}

// auditLog records staff writes with the acting username.
func (h *Handler) auditLog(r *http.Request, action string, fields ...zap.Field) {
	if sess, ok := SessionFromContext(r.Context()); ok {
		fields = append(fields, zap.String("staff", sess.Username))
	}
	h.logger.Info("catalog "+action, fields...)
}

func (h *Handler) getSurveyConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		cfg, err := h.configs.Get(ctx)
		if err != nil {
			h.writeAPIError(w, r, err)
			return
		}
		writeJSON(h.logger, w, http.StatusOK, cfg)
	}
}

func (h *Handler) updateSurveyConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg models.SurveyConfig
		if !h.decodeJSON(w, r, &cfg) {
			return
		}
		saveResource(h, w, r, http.StatusOK, cfg, h.configs.Update)
	}
}

func (h *Handler) resetResponsesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, err := strconv.Atoi(r.URL.Query().Get("year"))
		if err != nil {
			year = 0
		}

		// ResetResponses applies its own, longer timeout.
		n, err := h.catalog.ResetResponses(r.Context(), year)
		if err != nil {
			h.writeAPIError(w, r, err)
			return
		}
		h.auditLog(r, "responses reset", zap.Int("year", year), zap.Int64("deleted", n))
		writeJSON(h.logger, w, http.StatusOK, map[string]any{"year": year, "deleted": n})
	}
}
