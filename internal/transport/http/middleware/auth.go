package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrpay/internal/domain/auth"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"

	"go.uber.org/zap"
)

// Auth attaches the caller identity when a valid bearer token is present.
// Requests without one pass through unauthenticated; RequireAuth rejects them.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				requestctx.Logger(r.Context()).Debug("bearer token rejected", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			user := claims.User()
			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			logger := requestctx.Logger(ctx).With(
				zap.String("userId", user.UserID),
				zap.String("tenantId", user.TenantID),
			)
			ctx = requestctx.WithLogger(ctx, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}

// WithUser is used by handlers tests to inject an identity without a token.
func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	return context.WithValue(ctx, ctxKeyUser, user)
}
