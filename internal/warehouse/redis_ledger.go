package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const defaultStockPrefix = "stock:"

const (
	decrementMissing = -1
	decrementShort   = -2
)

// decrementStockScript subtracts ARGV[1] from KEYS[1] only when enough stock
// is held, deleting the key when it reaches zero.
var decrementStockScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return -1
end

current = tonumber(current)
local quantity = tonumber(ARGV[1])
if current < quantity then
	return -2
end

local left = current - quantity
if left == 0 then
	redis.call('DEL', KEYS[1])
else
	redis.call('SET', KEYS[1], left)
end
return left
`)

// RedisLedger keeps stock counts in Redis so several lanes can share one
// warehouse without overselling.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger constructs a Redis-backed ledger. An empty prefix defaults to "stock:".
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = defaultStockPrefix
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (r *RedisLedger) key(id string) string {
	return r.prefix + id
}

// Quantity implements Ledger.
func (r *RedisLedger) Quantity(ctx context.Context, id string) (int, bool, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get stock %s: %w", id, err)
	}
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("parse stock %s: %w", id, err)
	}
	return qty, true, nil
}

// Increment implements Ledger. INCRBY 0 creates the key holding zero, like
// MemoryLedger.Increment.
func (r *RedisLedger) Increment(ctx context.Context, id string, qty int) (int, error) {
	n, err := r.client.IncrBy(ctx, r.key(id), int64(qty)).Result()
	if err != nil {
		return 0, fmt.Errorf("increment stock %s: %w", id, err)
	}
	return int(n), nil
}

// Decrement implements Ledger.
func (r *RedisLedger) Decrement(ctx context.Context, id string, qty int) (int, error) {
	left, err := decrementStockScript.Run(ctx, r.client, []string{r.key(id)}, qty).Int()
	if err != nil {
		return 0, fmt.Errorf("decrement stock %s: %w", id, err)
	}
	switch left {
	case decrementMissing:
		return 0, ErrNotListed
	case decrementShort:
		return 0, ErrOutOfStock
	}
	return left, nil
}
