package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-checkout/internal/common"
	"github.com/noah-isme/toko-checkout/internal/obs"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

// Idempotency rejects repeated write requests that reuse an Idempotency-Key,
// so a retried scan cannot take a unit twice. Claims live in Redis under Prefix;
// a request answered with a 4xx or 5xx releases its claim.
type Idempotency struct {
	Client redis.UniversalClient
	Prefix string
	TTL    time.Duration
}

func (i Idempotency) key(r *http.Request, header string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + " " + header))
	return i.Prefix + hex.EncodeToString(sum[:])
}

// Middleware enforces the claim for POST, PUT and DELETE requests carrying the header.
func (i Idempotency) Middleware(next http.Handler) http.Handler {
	if i.Client == nil {
		return next
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := i.key(r, header)
		ok, err := i.Client.SetNX(r.Context(), key, "locked", ttl).Result()
		if err != nil {
			common.JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store error", nil)
			return
		}
		if !ok {
			common.JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", map[string]any{"key": header})
			return
		}
		rec := obs.NewStatusRecorder(w)
		completed := false
		defer func() {
			// failed writes change nothing, so their key may be retried
			if !completed || rec.Status() >= http.StatusBadRequest {
				_ = i.Client.Del(context.Background(), key).Err()
				return
			}
			_ = i.Client.Expire(context.Background(), key, ttl).Err()
		}()
		next.ServeHTTP(rec, r)
		completed = true
	})
}
