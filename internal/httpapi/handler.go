package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/service"
)

const requestTimeout = 10 * time.Second

// Config provides dependencies for Handler.
type Config struct {
	Logger   *zap.Logger
	Recorder Recorder
	Configs  SurveyConfigs
	Reporter Reporter
	Auth     Authenticator
	Catalog  Catalog
	Location *time.Location
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// Handler serves the capture flow, the staff portal and the catalog API.
type Handler struct {
	logger        *zap.Logger
	recorder      Recorder
	configs       SurveyConfigs
	reporter      Reporter
	auth          Authenticator
	catalog       Catalog
	pages         *renderer
	secureCookies bool
}

func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Recorder == nil || cfg.Configs == nil || cfg.Reporter == nil || cfg.Auth == nil || cfg.Catalog == nil {
		return nil, errors.New("httpapi: missing dependency")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	pages, err := newRenderer(loc)
	if err != nil {
		return nil, err
	}
	return &Handler{
		logger:        logger.Named("http"),
		recorder:      cfg.Recorder,
		configs:       cfg.Configs,
		reporter:      cfg.Reporter,
		auth:          cfg.Auth,
		catalog:       cfg.Catalog,
		pages:         pages,
		secureCookies: cfg.SecureCookies,
	}, nil
}

// Routes builds the chi router with every public and staff route.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(h.logger, w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", h.indexHandler())
	r.Route("/tablet", func(r chi.Router) {
		r.Get("/", h.indexHandler())
		r.Get("/{identifier}/", h.formHandler())
		r.Post("/{identifier}/", h.submitHandler())
		r.Get("/{identifier}/gracias/", h.thanksHandler())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login/", h.loginFormHandler())
		r.Post("/login/", h.loginHandler())
		r.Post("/logout/", h.logoutHandler())
		r.Route("/api", func(r chi.Router) {
			r.Use(h.requireStaffAPI)
			h.registerCatalogAPI(r)
		})
	})

	r.Route("/portal", func(r chi.Router) {
		r.Use(h.requireStaffPage)
		r.Get("/", h.portalHandler())
		r.Get("/exportar.csv", h.exportHandler())
	})

	return r
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to write JSON response", zap.Error(err))
	}
}

// writeAPIError maps the service error taxonomy to JSON responses.
func (h *Handler) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(h.logger, w, http.StatusBadRequest, map[string]any{"errors": verr.Fields})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(h.logger, w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, service.ErrUnauthorized):
		writeJSON(h.logger, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	default:
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(h.logger, w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// render executes a page into a buffer so template errors become a clean 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages.execute(&buf, page, data); err != nil {
		h.logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("client went away", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// pageError renders the error taxonomy for HTML routes.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrNotFound) {
		h.render(w, r, http.StatusNotFound, "not_found.html", nil)
		return
	}
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
