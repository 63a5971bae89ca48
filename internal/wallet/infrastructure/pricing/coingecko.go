// Package pricing 行情报价：CoinGecko 拉取，Redis 缓存，静态兜底
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/pkg/config"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// ErrQuoteUnavailable 无可用报价
var ErrQuoteUnavailable = errors.New("quote unavailable")

// coinIDs 资产代码到 CoinGecko id
var coinIDs = map[string]string{
	"XLM": "stellar",
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"SOL": "solana",
}

// CoinGecko simple/price 接口客户端
type CoinGecko struct {
	client *resty.Client
}

func NewCoinGecko(cfg config.PricingConfig) *CoinGecko {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinGecko{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

func (c *CoinGecko) Quote(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	id, ok := coinIDs[strings.ToUpper(base)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown asset %s", ErrQuoteUnavailable, base)
	}
	vs := strings.ToLower(quote)

	var out map[string]map[string]decimal.Decimal
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"ids": id, "vs_currencies": vs}).
		SetResult(&out).
		Get("/simple/price")
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko request: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("%w: coingecko status %d", ErrQuoteUnavailable, resp.StatusCode())
	}

	price, ok := out[id][vs]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s/%s", ErrQuoteUnavailable, base, quote)
	}
	return price, nil
}
