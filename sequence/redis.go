package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const invoiceSequenceKey = "invoicing:sequence:invoices"

// raiseScript sets KEYS[1] to ARGV[1] only if that moves it upward.
var raiseScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
if n > cur then
	redis.call('SET', KEYS[1], n)
	return n
end
return cur
`)

// Redis keeps the counter in one key and advances it with INCR.
type Redis struct {
	rdb redis.UniversalClient
	key string
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{rdb: rdb, key: invoiceSequenceKey}
}

func (r *Redis) Next(ctx context.Context) (int64, error) {
	n, err := r.rdb.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("advancing invoice sequence: %w", err)
	}
	return n, nil
}

func (r *Redis) Observe(ctx context.Context, n int64) error {
	if err := raiseScript.Run(ctx, r.rdb, []string{r.key}, n).Err(); err != nil {
		return fmt.Errorf("raising invoice sequence: %w", err)
	}
	return nil
}
