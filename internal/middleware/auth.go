package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/tidemann/chorewheel/internal/auth"
	"github.com/tidemann/chorewheel/internal/store"
)

const sessionCookieName = "chorewheel_session"

// RequireAuth validates the session cookie, confirms the user still belongs
// to the session's household, and populates AuthContext. Chorewheel is a
// JSON API, so failures get a 401 body rather than a redirect.
func RequireAuth(sessionStore *store.SessionStore, householdStore *store.HouseholdStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessionStore.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			member, err := householdStore.GetMember(sess.HouseholdID, sess.UserID)
			if err != nil || member == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:      sess.UserID,
				HouseholdID: sess.HouseholdID,
				Role:        member.Role,
				SessionID:   sess.ID,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
