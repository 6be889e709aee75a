package sequence

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"flextasker/pkg/rediskey"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

// Generator hands out human-readable reference codes for money movements.
type Generator interface {
	NextPaymentCode(ctx context.Context) (string, error)
	NextRefundCode(ctx context.Context) (string, error)
}

type RedisGenerator struct {
	rdb *redis.Client
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

func (g *RedisGenerator) NextPaymentCode(ctx context.Context) (string, error) {
	return g.nextDailyCode(ctx, "PAY", rediskey.BuildPaymentSeqKey)
}

func (g *RedisGenerator) NextRefundCode(ctx context.Context) (string, error) {
	return g.nextDailyCode(ctx, "REF", rediskey.BuildRefundSeqKey)
}

func (g *RedisGenerator) nextDailyCode(ctx context.Context, prefix string, keyFn func(string) string) (string, error) {
	today := time.Now().UTC().Format("060102")

	key := keyFn(today)
	seq, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}

	// Daily counters expire after 48h; the code embeds the day so reuse across
	// days is impossible.
	g.rdb.Expire(ctx, key, 48*time.Hour)

	return fmt.Sprintf("%s-%s-%04d", prefix, today, seq), nil
}

// FallbackCode produces a collision-resistant random code for when Redis is
// unavailable. Reference codes are cosmetic; payments never fail over them.
func FallbackCode(prefix string) string {
	datePart := time.Now().UTC().Format("060102")

	r := make([]byte, 3)
	if _, err := rand.Read(r); err != nil {
		return fmt.Sprintf("%s-%s-000000", prefix, datePart)
	}
	randomPart := strings.ToUpper(fmt.Sprintf("%x", r))

	return fmt.Sprintf("%s-%s-%s", prefix, datePart, randomPart)
}
