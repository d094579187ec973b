package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating session tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// SessionChecker reports whether a session id is still live; revoked or
// expired sessions read as inactive.
type SessionChecker interface {
	IsActive(ctx context.Context, id string) (bool, error)
}

// JWTClaims represents the claims expected from the JWT validator.
type JWTClaims struct {
	Commitment string
	Role       string
	JTI        string
}

type contextKeyCommitment struct{}
type contextKeyRole struct{}
type contextKeySessionID struct{}

var (
	ContextKeyCommitment = contextKeyCommitment{}
	ContextKeyRole       = contextKeyRole{}
	ContextKeySessionID  = contextKeySessionID{}
)

// GetCommitment retrieves the authenticated commitment from the context.
func GetCommitment(ctx context.Context) string {
	commitment, ok := ctx.Value(ContextKeyCommitment).(string)
	if !ok {
		return ""
	}
	return commitment
}

// GetRole retrieves the authenticated role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// GetSessionID retrieves the session id (token jti) from the context.
func GetSessionID(ctx context.Context) string {
	id, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return ""
	}
	return id
}

func writeAuthError(w http.ResponseWriter, status int, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

// RequireAuth validates the bearer token and, when a session checker is
// configured, rejects tokens whose session was revoked early.
func RequireAuth(validator JWTValidator, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if sessions != nil {
				active, err := sessions.IsActive(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "session check failed",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					writeAuthError(w, http.StatusInternalServerError, "Failed to validate session")
					return
				}
				if !active {
					logger.WarnContext(ctx, "unauthorized access - session revoked",
						"jti", claims.JTI,
						"request_id", GetRequestID(ctx),
					)
					writeAuthError(w, http.StatusUnauthorized, "Session has been revoked")
					return
				}
			}

			ctx = context.WithValue(ctx, ContextKeyCommitment, claims.Commitment)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			ctx = context.WithValue(ctx, ContextKeySessionID, claims.JTI)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
