package payrollhandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"hrpay/internal/domain/auth"
	"hrpay/internal/requestctx"
	"hrpay/internal/transport/http/api"
	"hrpay/internal/transport/http/middleware"
	"hrpay/internal/transport/http/shared"
)

func decodePayload(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := shared.DecodeJSON(r, dst); err != nil {
		failDecode(w, r, err)
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", middleware.GetRequestID(r.Context()))
			return nil, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return nil, false
	}
	return raw, true
}

func decodeBytes(w http.ResponseWriter, r *http.Request, raw []byte, dst any) bool {
	clone := r.Clone(r.Context())
	clone.Body = io.NopCloser(bytes.NewReader(raw))
	return decodePayload(w, clone, dst)
}

func failDecode(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
	case errors.Is(err, shared.ErrEmptyBody):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "request body is required", requestID)
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
	}
}

// replayIdempotent answers a retried request from the stored response. It
// reports replayed=true once it has written to w.
func (h *Handler) replayIdempotent(w http.ResponseWriter, r *http.Request, user auth.UserContext, endpoint string, body []byte) (key, requestHash string, replayed bool) {
	key = r.Header.Get(middleware.IdempotencyHeader)
	if key == "" || h.Idempotency == nil {
		return "", "", false
	}
	if !middleware.ValidIdempotencyKey(key) {
		api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "Idempotency-Key must be 1-255 printable characters", middleware.GetRequestID(r.Context()))
		return key, "", true
	}
	requestHash = middleware.RequestHash(body)
	stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, endpoint, key, requestHash)
	if errors.Is(err, middleware.ErrIdempotencyConflict) {
		api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different request", middleware.GetRequestID(r.Context()))
		return key, requestHash, true
	}
	if err != nil {
		requestctx.Logger(r.Context()).Warn("idempotency check failed", zap.String("endpoint", endpoint), zap.Error(err))
		return key, requestHash, false
	}
	if found {
		api.Success(w, json.RawMessage(stored), middleware.GetRequestID(r.Context()))
		return key, requestHash, true
	}
	return key, requestHash, false
}

func (h *Handler) rememberIdempotent(r *http.Request, user auth.UserContext, endpoint, key, requestHash string, response any) {
	if key == "" || h.Idempotency == nil {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("idempotency response marshal failed", zap.Error(err))
		return
	}
	if err := h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, endpoint, key, requestHash, payload); err != nil {
		requestctx.Logger(r.Context()).Warn("idempotency save failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
}
