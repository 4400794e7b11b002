package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SendLimiter keeps a per-account count of messages sent today in Redis so
// the daily cap holds across separate runs of the tool.
type SendLimiter struct {
	redis   *redis.Client
	account string
	now     func() time.Time

	incrScript *redis.Script
}

// Lua script for an atomic increment that sets the TTL on the first write of
// the day, so a crash between INCR and EXPIRE cannot leave an immortal key.
const dailyIncrLuaScript = `
local key = KEYS[1]
local ttl = tonumber(ARGV[1])

local n = redis.call("INCR", key)
if n == 1 then
    redis.call("EXPIRE", key, ttl)
end

return n
`

// dailyTTL outlives the calendar day so late-night runs still see the key.
const dailyTTL = 25 * time.Hour

// NewSendLimiter creates a limiter for account backed by redisClient.
func NewSendLimiter(redisClient *redis.Client, account string) *SendLimiter {
	return &SendLimiter{
		redis:      redisClient,
		account:    account,
		now:        time.Now,
		incrScript: redis.NewScript(dailyIncrLuaScript),
	}
}

// NewSendLimiterFromURL connects to Redis and returns a limiter for account.
func NewSendLimiterFromURL(redisURL, account string) (*SendLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Printf("[SendLimiter] Connected to Redis at %s", opts.Addr)

	return NewSendLimiter(client, account), nil
}

func (r *SendLimiter) dailyKey() string {
	return fmt.Sprintf("leadharvest:sent:%s:%s", r.account, r.now().Format("2006-01-02"))
}

// SentToday returns how many messages the account has sent today.
func (r *SendLimiter) SentToday(ctx context.Context) (int, error) {
	n, err := r.redis.Get(ctx, r.dailyKey()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daily counter: %w", err)
	}
	return n, nil
}

// RecordSent increments today's counter.
func (r *SendLimiter) RecordSent(ctx context.Context) error {
	if err := r.incrScript.Run(ctx, r.redis, []string{r.dailyKey()}, int(dailyTTL.Seconds())).Err(); err != nil {
		return fmt.Errorf("increment daily counter: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *SendLimiter) Close() error {
	return r.redis.Close()
}
