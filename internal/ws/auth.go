package ws

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"inspection_log/internal/auth"
)

// extractToken extracts JWT token from request
// Priority: 1. token query parameter, 2. Authorization header
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	return ""
}

// WrapWithAuth checks the JWT on Socket.IO handshake requests before
// handing them to next.
func WrapWithAuth(next http.Handler, issuer *auth.TokenIssuer, logger *logrus.Entry) http.Handler {
	log := logger.WithField("component", "ws")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/socket.io/") {
			token := extractToken(r)
			if token == "" {
				log.WithField("remote", r.RemoteAddr).Debug("Handshake rejected: no token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				log.WithError(err).WithField("remote", r.RemoteAddr).Debug("Handshake rejected: invalid token")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			log.WithField("username", claims.Username).Debug("Handshake accepted")
		}

		next.ServeHTTP(w, r)
	})
}
