package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"vape-market-backend/internal/apperr"
	"vape-market-backend/internal/models"
	"vape-market-backend/internal/services"
)

type contextKey string

const sessionKey contextKey = "session"

// Authenticator validates session tokens
type Authenticator interface {
	Authenticate(token string) (*models.Account, error)
}

// AuthMiddleware requires a valid Bearer token and stores the session in the context
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			account, err := auth.Authenticate(parts[1])
			if err != nil {
				respondError(w, apperr.UserMessage(err), http.StatusUnauthorized)
				return
			}

			ctx := WithSession(r.Context(), &services.Session{Account: account, Token: parts[1]})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSession returns a context carrying the session
func WithSession(ctx context.Context, session *services.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) *services.Session {
	session, ok := ctx.Value(sessionKey).(*services.Session)
	if !ok {
		return nil
	}
	return session
}

// GetAccount extracts the session account from context, nil when there is none
func GetAccount(ctx context.Context) *models.Account {
	if session := GetSession(ctx); session != nil {
		return session.Account
	}
	return nil
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
