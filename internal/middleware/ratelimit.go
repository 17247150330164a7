package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"bookswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Quota caps how often one caller may perform Action within Window.
// FailClosed rejects with 503 when redis cannot be reached instead of letting
// the request through.
type Quota struct {
	Action     string
	Limit      int
	Window     time.Duration
	FailClosed bool
}

// Usage is the counter state after one Take.
type Usage struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

var errNoLimiterStore = errors.New("rate limiter has no redis client")

// quotasDisabled is true outside deployed environments.
func quotasDisabled() bool {
	switch strings.ToLower(os.Getenv("APP_ENV")) {
	case "", "test", "development":
		return true
	}
	return false
}

func (q Quota) key(subject string) string {
	return "rl:" + q.Action + ":" + subject
}

// Take counts one hit for subject against q.
func (q Quota) Take(ctx context.Context, rdb *redis.Client, subject string) (Usage, error) {
	if quotasDisabled() {
		return Usage{Allowed: true, Remaining: q.Limit}, nil
	}
	if rdb == nil {
		return Usage{}, errNoLimiterStore
	}

	key := q.key(subject)
	pipe := rdb.TxPipeline()
	hits := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		RedisErrors.WithLabelValues("rate_limit").Inc()
		return Usage{}, err
	}

	resetIn := ttl.Val()
	if resetIn <= 0 {
		// First hit in this window, or a key that lost its expiry.
		if err := rdb.PExpire(ctx, key, q.Window).Err(); err != nil {
			RedisErrors.WithLabelValues("rate_limit").Inc()
			return Usage{}, err
		}
		resetIn = q.Window
	}

	count := int(hits.Val())
	return Usage{
		Allowed:   count <= q.Limit,
		Remaining: max(q.Limit-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// CheckRateLimit reports whether subject may perform action once more.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, action, subject string, limit int, window time.Duration) (bool, error) {
	usage, err := Quota{Action: action, Limit: limit, Window: window}.Take(ctx, rdb, subject)
	return usage.Allowed, err
}

// Throttle enforces q per authenticated profile, or per client IP before
// authentication.
func Throttle(rdb *redis.Client, q Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if uid, ok := UserID(c); ok {
			subject = "user:" + uid.String()
		}

		usage, err := q.Take(c.UserContext(), rdb, subject)
		if err != nil {
			if !q.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "quota store unavailable",
				slog.String("action", q.Action), slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				models.NewDependencyError("rate limiter", err))
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(usage.Remaining))
		if !usage.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(usage.ResetIn.Round(time.Second)/time.Second)))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError(q.Action))
		}
		return c.Next()
	}
}
