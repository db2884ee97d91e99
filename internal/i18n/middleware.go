package i18n

import (
	"net/http"
	"slices"

	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// LangCookieName remembers a language picked with the "lang" query parameter.
const LangCookieName = "lang"

// Middleware injects a localizer into every request context. A supported
// "lang" query parameter wins and is remembered in a cookie; then the cookie,
// then the Accept-Language header; lang is the last resort.
func Middleware(lang string) func(http.Handler) http.Handler {
	fallback := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := fallback
			if q := r.URL.Query().Get("lang"); q != "" && slices.Contains(Languages(), q) {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookieName,
					Value:    q,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				loc = i18n.NewLocalizer(bundle, q, lang)
			} else if c, err := r.Cookie(LangCookieName); err == nil && slices.Contains(Languages(), c.Value) {
				loc = i18n.NewLocalizer(bundle, c.Value, lang)
			} else if accept := r.Header.Get("Accept-Language"); accept != "" {
				loc = i18n.NewLocalizer(bundle, accept, lang)
			}
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}
