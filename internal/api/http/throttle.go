package http

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/mdd-api/internal/config"
	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

// MsgTooManyLogins is returned once a client exhausts its login attempts.
const MsgTooManyLogins = "Too many login attempts, try again later"

const loginKeyPrefix = "mdd:login"

// AttemptCounter counts hits on a key inside a fixed window.
type AttemptCounter interface {
	// Hit increments key and returns the count within the current window
	// and the time left until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

var fixedWindowScript = redis.NewScript(`
    local count = redis.call('INCR', KEYS[1])
    if count == 1 then
        redis.call('PEXPIRE', KEYS[1], ARGV[1])
    end
    local ttl = redis.call('PTTL', KEYS[1])
    return { count, ttl }
`)

type redisAttemptCounter struct {
	client *redis.Client
}

// NewRedisAttemptCounter returns a counter backed by client, nil without one.
func NewRedisAttemptCounter(client *redis.Client) AttemptCounter {
	if client == nil {
		return nil
	}
	return &redisAttemptCounter{client: client}
}

func (r *redisAttemptCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	vals, err := fixedWindowScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected script result %v", vals)
	}
	return vals[0], time.Duration(vals[1]) * time.Millisecond, nil
}

// LoginThrottle bounds login attempts per client address and identifier.
// Counter failures let the request through.
func LoginThrottle(cfg config.RateLimitConfig, counter AttemptCounter, logger *zap.Logger) fiber.Handler {
	if counter == nil || cfg.LoginMax <= 0 || cfg.LoginWindow <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		key := loginKey(c)
		count, reset, err := counter.Hit(c.UserContext(), key, cfg.LoginWindow)
		if err != nil {
			logger.Warn("login throttle unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		remaining := int64(cfg.LoginMax) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.LoginMax))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.LoginMax) {
			secs := int((reset + time.Second - 1) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			logger.Info("login throttled", zap.String("ip", c.IP()), zap.Int64("attempts", count))
			return apperrors.NewTooManyRequests(MsgTooManyLogins)
		}
		return c.Next()
	}
}

func loginKey(c *fiber.Ctx) string {
	var body struct {
		Identifier string `json:"identifier"`
	}
	_ = c.BodyParser(&body)

	identifier := strings.ToLower(strings.TrimSpace(body.Identifier))
	if identifier == "" {
		identifier = "anon"
	}
	ip := c.IP()
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{loginKeyPrefix, "ip", ip, "id", identifier}, ":")
}
