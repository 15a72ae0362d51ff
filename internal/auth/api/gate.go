package authapi

import (
	"net/http"
	"time"

	"gradnet/cmd/identity"
)

// RequireAuth authenticates the access cookie and attaches the resolved
// Identity to the request context. Every failure mode (missing cookie, bad
// signature, expired, unknown or disabled principal) produces the same 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		value, ok := h.accessTokenFromCookie(r)
		if !ok {
			h.metrics.gateDenied("no_credential")
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		p, err := h.sessions.Authenticate(r.Context(), time.Now().UTC(), value)
		if err != nil {
			h.metrics.gateDenied("invalid_credential")
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		ctx := WithIdentity(r.Context(), Identity{SubjectID: p.ID, Role: p.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a handler on a role allow-list. It must run inside
// RequireAuth; a request with no identity is a 401, a known identity whose
// role is not listed is a 403.
func (h *Handler) RequireRole(next http.Handler, allowed ...identity.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if !id.Role.In(allowed...) {
			h.metrics.gateDenied("forbidden")
			writeError(w, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}
