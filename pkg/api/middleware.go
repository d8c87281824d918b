package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/cors"
	"github.com/timoknapp/sports-meet/pkg/metrics"
	"github.com/timoknapp/sports-meet/pkg/models"
	"github.com/timoknapp/sports-meet/pkg/session"
)

type sessionKey struct{}

// SessionFromContext returns the session attached by the auth middleware.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

// authMiddleware requires a valid bearer token and attaches the caller's
// session, reloaded from the stored user.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
			return
		}

		sess, err := s.tokens.Parse(tokenString)
		if err != nil {
			s.log.Debug("Rejected token: %v", err)
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		sess, err = s.auth.Refresh(sess)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "Invalid token: unknown user")
			return
		}

		metrics.MarkActive(sess.UserID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

// requireRole guards handlers that have no service-level check, such as
// the diagnostics endpoints.
func requireRole(next http.HandlerFunc, roles ...models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || !sess.HasRole(roles...) {
			writeJSONError(w, http.StatusForbidden, "not permitted")
			return
		}
		next(w, r)
	}
}

// corsHandler applies the configured origins; no origins disables CORS headers.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler
}
