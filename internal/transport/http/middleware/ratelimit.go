package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

// rateLimiter keeps one token bucket per key. A bucket refills limit tokens
// per window and holds at most limit tokens.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	keyFn     RateLimitKeyFunc
	clients   map[string]*rateClient
	lastSweep time.Time
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	rl := newRateLimiter(limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit applies a tighter per-actor budget to the
// payroll operations that compute or release money.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	sensitiveByActor := newRateLimiter(max(baseLimit/2, 1), window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSensitiveMutation(r) && !sensitiveByActor.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.TenantID + ":" + user.UserID
	}
	return shared.ClientIP(r)
}

func newRateLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *rateLimiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	return &rateLimiter{
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		clients: map[string]*rateClient{},
	}
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 || rl.window <= 0 {
		return true
	}

	key := rl.keyFn(r)
	if key == "" {
		key = shared.ClientIP(r)
	}
	now := time.Now()

	rl.mu.Lock()
	rl.sweep(now)
	client, ok := rl.clients[key]
	if !ok {
		every := rl.window / time.Duration(rl.limit)
		client = &rateClient{limiter: rate.NewLimiter(rate.Every(every), rl.limit)}
		rl.clients[key] = client
	}
	client.lastSeen = now
	reservation := client.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
	}
	remaining := int(math.Floor(client.limiter.TokensAt(now)))
	rl.mu.Unlock()

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

	if delay > 0 {
		retryAfter := max(int(math.Ceil(delay.Seconds())), 1)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		requestctx.Logger(r.Context()).Warn("rate limit exceeded",
			zap.String("key", key),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Int("limit", rl.limit),
			zap.Duration("window", rl.window),
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

// sweep drops buckets idle for longer than a window; they would be full again.
// Caller holds rl.mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	rl.lastSweep = now
	for key, client := range rl.clients {
		if now.Sub(client.lastSeen) > rl.window {
			delete(rl.clients, key)
		}
	}
}

func isSensitiveMutation(r *http.Request) bool {
	if r == nil || r.Method != http.MethodPost {
		return false
	}
	path := normalizedAPIPath(r.URL.Path)
	switch path {
	case "/payroll/runs", "/payroll/calculate":
		return true
	}
	if strings.HasPrefix(path, "/payroll/payslips/") && strings.HasSuffix(path, "/pay") {
		return true
	}
	if strings.HasPrefix(path, "/payroll/employees/") && strings.HasSuffix(path, "/payslips") {
		return true
	}
	if strings.HasPrefix(path, "/overtime/requests/") && strings.HasSuffix(path, "/decision") {
		return true
	}
	return false
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimSpace(path)
	cleaned = strings.TrimPrefix(cleaned, "/api/v1")
	if cleaned == "" {
		return "/"
	}
	if !strings.HasPrefix(cleaned, "/") {
		return "/" + cleaned
	}
	return cleaned
}
