package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/service"
)

const (
	sessionCookie = "encuestas_session"
	loginPath     = "/admin/login/"
)

// requestLogger writes one zap line per request, like the gRPC LoggingInterceptor.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("client_addr", r.RemoteAddr),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("HTTP request failed", fields...)
			} else {
				logger.Info("HTTP request completed", fields...)
			}
		})
	}
}

type sessionContextKey struct{}

func contextWithSession(ctx context.Context, sess service.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the staff session of an authorized request.
func SessionFromContext(ctx context.Context) (service.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(service.Session)
	return sess, ok
}

// requestToken reads the session token from the Authorization header or the
// session cookie.
func requestToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) authenticate(r *http.Request) (service.Session, bool) {
	token := requestToken(r)
	if token == "" {
		return service.Session{}, false
	}
	sess, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		return service.Session{}, false
	}
	return sess, true
}

// requireStaffPage redirects anonymous callers to the login page without
// running the wrapped handler.
func (h *Handler) requireStaffPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.authenticate(r)
		if !ok {
			target := loginPath + "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), sess)))
	})
}

// requireStaffAPI answers anonymous callers with 401 JSON.
func (h *Handler) requireStaffAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.authenticate(r)
		if !ok {
			h.writeAPIError(w, r, service.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithSession(r.Context(), sess)))
	})
}

// safeNext accepts only local absolute paths as a post-login redirect.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/portal/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/portal/"
	}
	return next
}
