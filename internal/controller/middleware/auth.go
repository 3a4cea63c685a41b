// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"castplane/internal/identity"
	"castplane/internal/logger"
	"castplane/pkg/api"
)

// AuthMiddleware resolves the bearer token to an identity and stores it in
// the request context. Every project operation is scoped by that identity.
func AuthMiddleware(p identity.Provider, l *slog.Logger) func(http.Handler) http.Handler {
	if l == nil {
		l = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			id, err := p.Identify(r.Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrUnauthenticated) {
					writeError(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
				logger.FromContext(r.Context(), l).Error("identity lookup failed", "error", err)
				writeError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := identity.NewContext(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Success: false,
		Error:   message,
		Code:    strconv.Itoa(code),
	})
}
