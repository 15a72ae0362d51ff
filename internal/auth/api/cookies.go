package authapi

import (
	"net/http"
	"strings"
	"time"

	"gradnet/internal/auth/session"
)

// setSessionCookies writes both transport cookies. The access cookie rides
// on every request under CookiePath; the refresh cookie is scoped to
// RefreshCookiePath so the long-lived credential only travels when rotating.
func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.AccessCookieName,
		Value:    issued.Access.Value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  issued.Access.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.RefreshCookieName,
		Value:    issued.Refresh.Value,
		Path:     h.cfg.RefreshCookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  issued.Refresh.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

// clearSessionCookies expires both cookies. Paths and flags must match the
// set path exactly or browsers keep the old cookie around.
func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.AccessCookieName, h.cfg.CookiePath)
	h.expireCookie(w, h.cfg.RefreshCookieName, h.cfg.RefreshCookiePath)
}

func (h *Handler) expireCookie(w http.ResponseWriter, name, path string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) accessTokenFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.cfg.AccessCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

// refreshTokenFromRequest prefers the cookie; a body value is the fallback
// for callers on paths the refresh cookie does not reach.
func (h *Handler) refreshTokenFromRequest(r *http.Request, bodyValue string) (string, bool) {
	if c, err := r.Cookie(h.cfg.RefreshCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v, true
		}
	}
	if v := strings.TrimSpace(bodyValue); v != "" {
		return v, true
	}
	return "", false
}
