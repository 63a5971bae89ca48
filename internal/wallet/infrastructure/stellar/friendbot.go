package stellar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/config"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
)

const defaultFriendbotURL = "https://friendbot.stellar.org"

type accountLoader interface {
	LoadAccount(ctx context.Context, address string) (*domain.AccountPosition, error)
}

// Friendbot 测试网充值，带指数退避重试，充值后回查账户确认到账
type Friendbot struct {
	client       *resty.Client
	url          string
	network      string
	maxAttempts  int
	initialDelay time.Duration
	accounts     accountLoader
	metrics      *metrics.Metrics
}

// NewFriendbot 创建充值客户端，m 可为空
func NewFriendbot(cfg config.StellarConfig, accounts accountLoader, m *metrics.Metrics) *Friendbot {
	url := cfg.FriendbotURL
	if url == "" {
		url = defaultFriendbotURL
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.FundMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Friendbot{
		client:       resty.New().SetTimeout(timeout),
		url:          url,
		network:      cfg.Network,
		maxAttempts:  attempts,
		initialDelay: time.Duration(cfg.FundInitialDelay) * time.Millisecond,
		accounts:     accounts,
		metrics:      m,
	}
}

// Fund 请求 friendbot 为地址充值
func (f *Friendbot) Fund(ctx context.Context, address string) error {
	if f.network != NetworkTestnet {
		return domain.ErrFundingUnsupported
	}
	if !domain.IsValidAddress(address) {
		return domain.ErrInvalidAddress
	}

	eb := backoff.NewExponentialBackOff()
	if f.initialDelay > 0 {
		eb.InitialInterval = f.initialDelay
	}
	eb.RandomizationFactor = 0.3
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(f.maxAttempts-1)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return f.attempt(ctx, address)
	}, policy, func(err error, wait time.Duration) {
		f.record("retry")
		logger.Warn(ctx, "friendbot funding attempt failed", "address", address, "attempt", attempt, "retry_in", wait, "error", err)
	})
	if err != nil {
		f.record("failure")
		return fmt.Errorf("%w after %d attempts: %v", domain.ErrFundingFailed, attempt, err)
	}

	f.record("success")
	logger.Info(ctx, "account funded", "address", address, "attempts", attempt)
	return nil
}

func (f *Friendbot) attempt(ctx context.Context, address string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("addr", address).
		Get(f.url)
	if err != nil {
		return err
	}

	switch {
	case resp.IsSuccess():
	case resp.StatusCode() == http.StatusBadRequest && strings.Contains(resp.String(), "op_already_exists"):
		// 已存在的账户，回查余额即可
	case resp.StatusCode() == http.StatusBadRequest:
		return backoff.Permanent(fmt.Errorf("friendbot rejected request: %s", strings.TrimSpace(resp.String())))
	default:
		return fmt.Errorf("friendbot returned status %d", resp.StatusCode())
	}

	position, err := f.accounts.LoadAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("verify funding: %w", err)
	}
	if !position.Funded() {
		return domain.ErrAccountNotFunded
	}
	return nil
}

func (f *Friendbot) record(result string) {
	if f.metrics != nil {
		f.metrics.RecordFunding(result)
	}
}
