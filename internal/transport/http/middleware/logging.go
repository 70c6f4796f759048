package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"hrpay/internal/platform/metrics"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"

	"go.uber.org/zap"
)

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}

// Logger scopes a zap logger to the request and writes one access line per
// request. The collector may be nil.
func Logger(base *zap.Logger, collector *metrics.Collector) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			requestID := GetRequestID(r.Context())
			logger := base.With(zap.String("requestId", requestID))
			ctx := requestctx.WithLogger(r.Context(), logger)

			next.ServeHTTP(recorder, r.WithContext(ctx))

			duration := time.Since(start)
			if collector != nil {
				collector.Record(recorder.status, duration)
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.status),
				zap.Int64("durationMs", duration.Milliseconds()),
			}
			switch {
			case recorder.status >= http.StatusInternalServerError:
				logger.Error("request completed", fields...)
			case recorder.status >= http.StatusBadRequest:
				logger.Warn("request completed", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}

func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			requestctx.Logger(r.Context()).Error("panic recovered",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", GetRequestID(r.Context()))
		}()
		next.ServeHTTP(w, r)
	})
}
