package httpapi

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/service"
)

type loginPage struct {
	Next     string
	Username string
	Failed   bool
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) loginFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, "login.html", loginPage{Next: safeNext(r.URL.Query().Get("next"))})
	}
}

func (h *Handler) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		username := r.PostForm.Get("username")
		next := safeNext(r.PostForm.Get("next"))

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		token, _, err := h.auth.Login(ctx, username, r.PostForm.Get("password"))
		if errors.Is(err, service.ErrUnauthorized) {
			h.logger.Info("staff login rejected", zap.String("username", username))
			h.render(w, r, http.StatusOK, "login.html", loginPage{Next: next, Username: username, Failed: true})
			return
		}
		if err != nil {
			h.pageError(w, r, err)
			return
		}

		h.setSessionCookie(w, token, int(h.auth.TTL().Seconds()))
		http.Redirect(w, r, next, http.StatusFound)
	}
}

func (h *Handler) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := requestToken(r); token != "" {
			ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
			defer cancel()
			if err := h.auth.Logout(ctx, token); err != nil {
				h.logger.Warn("failed to delete staff session", zap.Error(err))
			}
		}
		h.setSessionCookie(w, "", -1)
		http.Redirect(w, r, loginPath, http.StatusFound)
	}
}
