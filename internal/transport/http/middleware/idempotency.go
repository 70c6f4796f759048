package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"hrpay/internal/platform/db"
)

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

const (
	IdempotencyHeader = "Idempotency-Key"

	DefaultIdempotencyTTL = 24 * time.Hour
	maxIdempotencyKeyLen  = 255
)

// IdempotencyStore remembers the response of a keyed mutation so a retried
// request with the same key and body replays it instead of acting twice.
// Keys older than the TTL are treated as unused and may be reused.
type IdempotencyStore struct {
	db  db.DBTX
	ttl time.Duration
	now func() time.Time
}

func NewIdempotencyStore(conn db.DBTX, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{db: conn, ttl: ttl, now: time.Now}
}

// ValidIdempotencyKey accepts 1 to 255 printable ASCII characters.
func ValidIdempotencyKey(key string) bool {
	if key == "" || len(key) > maxIdempotencyKeyLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x21 || key[i] > 0x7e {
			return false
		}
	}
	return true
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func (s *IdempotencyStore) cutoff() time.Time {
	return s.now().Add(-s.ttl)
}

func (s *IdempotencyStore) Check(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}
	var (
		storedHash string
		stored     json.RawMessage
	)
	err := s.db.QueryRow(ctx, `
    SELECT request_hash, response_json
    FROM idempotency_keys
    WHERE tenant_id = $1 AND user_id = $2 AND key = $3 AND endpoint = $4 AND created_at > $5
  `, tenantID, userID, key, endpoint, s.cutoff()).Scan(&storedHash, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if storedHash != requestHash {
		return nil, false, ErrIdempotencyConflict
	}
	return stored, true, nil
}

// Save stores the response under the key. An expired entry is overwritten;
// a live entry for a different request is a conflict.
func (s *IdempotencyStore) Save(ctx context.Context, tenantID, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	tag, err := s.db.Exec(ctx, `
    INSERT INTO idempotency_keys (tenant_id, user_id, key, endpoint, request_hash, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (tenant_id, user_id, key, endpoint)
    DO UPDATE SET request_hash = EXCLUDED.request_hash, response_json = EXCLUDED.response_json, created_at = now()
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash OR idempotency_keys.created_at <= $7
  `, tenantID, userID, key, endpoint, requestHash, response, s.cutoff())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}
