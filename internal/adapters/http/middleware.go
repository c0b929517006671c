package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/application"
)

type contextKey string

const actorKey contextKey = "actor"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), contextKey("request_id"), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authMiddleware builds the Actor from the bearer token. With a verifier
// configured the token must be a valid platform JWT; without one (local
// runs) the raw token is trusted as the subject and the role comes from the
// X-Actor-Role header.
func authMiddleware(verifier *security.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", requestIDFromContext(r.Context()))
				return
			}
			token := strings.TrimSpace(auth[7:])
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "empty bearer token", requestIDFromContext(r.Context()))
				return
			}

			var sub, role string
			if verifier != nil {
				claims, err := verifier.ParseAndValidate(token)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token", requestIDFromContext(r.Context()))
					return
				}
				sub, role = claims.SubjectID, claims.Role
			} else {
				sub = token
				role = strings.ToLower(strings.TrimSpace(r.Header.Get("X-Actor-Role")))
			}
			if role == "" {
				role = application.RoleUser
			}

			actor := application.Actor{
				SubjectID:      sub,
				Role:           role,
				RequestID:      requestIDFromContext(r.Context()),
				IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actorFromContext(ctx context.Context) application.Actor {
	if v := ctx.Value(actorKey); v != nil {
		if a, ok := v.(application.Actor); ok {
			return a
		}
	}
	return application.Actor{}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKey("request_id")); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
