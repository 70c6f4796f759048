package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hrpay/internal/requestctx"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

const requestIDHeader = "X-Request-ID"

// RequestID reuses a caller supplied X-Request-ID when it is short and
// printable, otherwise a new one is generated.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if !acceptableRequestID(requestID) {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), requestID)))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}

func acceptableRequestID(value string) bool {
	if value == "" || len(value) > 128 {
		return false
	}
	for _, r := range value {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
