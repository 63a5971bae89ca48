package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/transcrypt/pkg/cache"
	"github.com/wyfcoding/transcrypt/pkg/config"
)

func TestCoinGecko_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "stellar", r.URL.Query().Get("ids"))
		assert.Equal(t, "inr", r.URL.Query().Get("vs_currencies"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stellar":{"inr":9.87}}`))
	}))
	defer srv.Close()

	price, err := NewCoinGecko(config.PricingConfig{BaseURL: srv.URL}).Quote(context.Background(), "XLM", "INR")
	require.NoError(t, err)
	assert.Equal(t, "9.87", price.String())
}

func TestCoinGecko_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ids") == "bitcoin" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cg := NewCoinGecko(config.PricingConfig{BaseURL: srv.URL})
	_, err := cg.Quote(context.Background(), "XLM", "INR")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = cg.Quote(context.Background(), "BTC", "INR")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = cg.Quote(context.Background(), "DOGE", "INR")
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

type mockQuoter struct{ mock.Mock }

func (m *mockQuoter) Quote(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	args := m.Called(ctx, base, quote)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type memoryCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int32
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	atomic.AddInt32(&c.writes, 1)
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return nil
}

func TestCachedQuoter(t *testing.T) {
	upstream := &mockQuoter{}
	upstream.On("Quote", mock.Anything, "XLM", "INR").Return(decimal.RequireFromString("10.25"), nil).Once()
	mc := &memoryCache{data: map[string][]byte{}}
	q := NewCachedQuoter(upstream, mc, time.Minute, nil)

	for i := 0; i < 3; i++ {
		price, err := q.Quote(context.Background(), "XLM", "INR")
		require.NoError(t, err)
		assert.Equal(t, "10.25", price.String())
	}
	assert.Equal(t, int32(1), mc.writes)
	upstream.AssertExpectations(t)
}

// slowQuoter 计数并模拟慢速上游
type slowQuoter struct {
	calls int32
	delay time.Duration
}

func (q *slowQuoter) Quote(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	atomic.AddInt32(&q.calls, 1)
	time.Sleep(q.delay)
	return decimal.RequireFromString("10.25"), nil
}

func TestCachedQuoter_ConcurrentMiss(t *testing.T) {
	upstream := &slowQuoter{delay: 50 * time.Millisecond}
	q := NewCachedQuoter(upstream, &memoryCache{data: map[string][]byte{}}, time.Minute, nil)

	const workers = 16
	var wg sync.WaitGroup
	prices := make([]decimal.Decimal, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prices[i], errs[i] = q.Quote(context.Background(), "XLM", "INR")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "10.25", prices[i].String())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&upstream.calls))
}

func TestCachedQuoter_Fallback(t *testing.T) {
	upstream := &mockQuoter{}
	upstream.On("Quote", mock.Anything, "XLM", "INR").Return(decimal.Zero, errors.New("boom"))
	upstream.On("Quote", mock.Anything, "BTC", "INR").Return(decimal.Zero, errors.New("boom"))

	q := NewCachedQuoter(upstream, &memoryCache{data: map[string][]byte{}}, time.Minute, map[string]decimal.Decimal{
		"XLM/INR": decimal.RequireFromString("9.50"),
	})

	price, err := q.Quote(context.Background(), "xlm", "inr")
	require.NoError(t, err)
	assert.Equal(t, "9.5", price.String())

	_, err = q.Quote(context.Background(), "BTC", "INR")
	assert.Error(t, err)
}
