package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/cache"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"golang.org/x/sync/singleflight"
)

type jsonCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CachedQuoter 缓存上游报价，上游失败时回退到静态报价
type CachedQuoter struct {
	next     domain.Quoter
	cache    jsonCache
	ttl      time.Duration
	fallback map[string]decimal.Decimal
	group    singleflight.Group
}

// NewCachedQuoter fallback 键为 "BASE/QUOTE"
func NewCachedQuoter(next domain.Quoter, c jsonCache, ttl time.Duration, fallback map[string]decimal.Decimal) *CachedQuoter {
	return &CachedQuoter{next: next, cache: c, ttl: ttl, fallback: fallback}
}

func pair(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

func (q *CachedQuoter) Quote(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base, quote = strings.ToUpper(base), strings.ToUpper(quote)
	key := "pricing:" + pair(base, quote)

	if price, ok := q.cached(ctx, key); ok {
		return price, nil
	}

	// 同一交易对并发未命中只请求一次上游
	v, err, _ := q.group.Do(key, func() (interface{}, error) {
		if price, ok := q.cached(ctx, key); ok {
			return price, nil
		}
		price, err := q.next.Quote(ctx, base, quote)
		if err != nil {
			return nil, err
		}
		if q.ttl > 0 {
			if err := q.cache.SetJSON(ctx, key, price, q.ttl); err != nil {
				logger.Warn(ctx, "price cache write failed", "pair", pair(base, quote), "error", err)
			}
		}
		return price, nil
	})
	if err != nil {
		if fb, ok := q.fallback[pair(base, quote)]; ok {
			logger.Warn(ctx, "using fallback price", "pair", pair(base, quote), "price", fb.String(), "error", err)
			return fb, nil
		}
		return decimal.Zero, fmt.Errorf("quote %s: %w", pair(base, quote), err)
	}
	return v.(decimal.Decimal), nil
}

func (q *CachedQuoter) cached(ctx context.Context, key string) (decimal.Decimal, bool) {
	var price decimal.Decimal
	err := q.cache.GetJSON(ctx, key, &price)
	if err == nil && price.IsPositive() {
		return price, true
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn(ctx, "price cache read failed", "key", key, "error", err)
	}
	return decimal.Zero, false
}
