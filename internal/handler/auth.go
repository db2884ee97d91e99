package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/examgen/internal/handler/views"
	appI18n "github.com/pavelanni/examgen/internal/i18n"
	"github.com/pavelanni/examgen/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	csrfFieldName     = "csrf_token"
)

var (
	errCSRFMissing  = errors.New("csrf token missing")
	errCSRFMismatch = errors.New("invalid csrf token")
)

// checkCSRF compares the form token with the cookie set on the previous response.
func checkCSRF(r *http.Request) error {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return errCSRFMissing
	}
	formToken := r.FormValue(csrfFieldName)
	if formToken == "" {
		return errCSRFMissing
	}
	if subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
		return errCSRFMismatch
	}
	return nil
}

// csrfMiddleware implements double-submit tokens: unsafe requests must echo the
// cookie in a form field, and every response rotates the token.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if err := checkCSRF(r); err != nil {
				slog.Warn("CSRF check failed", "path", r.URL.Path, "error", err)
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}
		}

		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			slog.Error("failed to generate CSRF token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		token := base64.URLEncoding.EncodeToString(b)
		h.setCookie(w, csrfCookieName, token, false)
		next.ServeHTTP(w, r.WithContext(model.ContextWithCSRFToken(r.Context(), token)))
	})
}

// setCookie writes an app cookie scoped to the base path. An empty value expires it.
func (h *Handler) setCookie(w http.ResponseWriter, name, value string, httpOnly bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cookiePath(),
		HttpOnly: httpOnly,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

// requireAuth lets a request through only with a live session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}
		sess, err := h.store.LookupAuthSession(r.Context(), cookie.Value)
		if err != nil {
			slog.Error("failed to look up auth session", "error", err)
		}
		if sess == nil {
			h.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if !h.config.PasswordRequired {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, views.LoginPage(""))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.config.PasswordRequired {
		http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
		return
	}
	if !h.passwordMatches(r) {
		render(w, r, http.StatusUnauthorized, views.LoginPage(appI18n.T(r.Context(), "LoginError")))
		return
	}

	token, err := h.store.StartAuthSession(r.Context(), h.config.SessionTTL)
	if err != nil {
		slog.Error("failed to start auth session", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.setCookie(w, sessionCookieName, token, true)
	slog.Info("signed in", "remote", r.RemoteAddr)
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) passwordMatches(r *http.Request) bool {
	hash, err := h.store.PasswordHash(r.Context())
	if err != nil {
		slog.Error("failed to read password hash", "error", err)
		return false
	}
	if hash == "" {
		slog.Warn("sign-in attempted but no password is configured")
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(r.FormValue("password"))) == nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.store.EndAuthSession(r.Context(), cookie.Value); err != nil {
			slog.Warn("failed to end auth session", "error", err)
		}
	}
	h.setCookie(w, sessionCookieName, "", true)
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}
