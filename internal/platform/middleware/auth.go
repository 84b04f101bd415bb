package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// JWTClaims are the claims the middleware expects from the validator. Modules
// lists the functional areas the caller is entitled to; module-wide
// notifications are scoped by it.
type JWTClaims struct {
	UserID  string
	Modules []string
}

// JWTValidator validates a bearer token and extracts its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type contextKeyUserID struct{}
type contextKeyModules struct{}

// GetUserID retrieves the authenticated user id from the context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyUserID{}).(string); ok {
		return v
	}
	return ""
}

// GetModules retrieves the caller's entitled modules from the context.
func GetModules(ctx context.Context) []string {
	if v, ok := ctx.Value(contextKeyModules{}).([]string); ok {
		return v
	}
	return nil
}

// WithUser injects authentication results; useful in handler tests.
func WithUser(ctx context.Context, userID string, modules []string) context.Context {
	ctx = context.WithValue(ctx, contextKeyUserID{}, userID)
	return context.WithValue(ctx, contextKeyModules{}, modules)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity and module entitlements in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Modules)))
		})
	}
}
