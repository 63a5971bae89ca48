package stellar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/config"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
)

type fakeAccounts struct {
	funded bool
	calls  int32
}

func (f *fakeAccounts) LoadAccount(ctx context.Context, address string) (*domain.AccountPosition, error) {
	atomic.AddInt32(&f.calls, 1)
	if !f.funded {
		return &domain.AccountPosition{Address: address}, nil
	}
	return &domain.AccountPosition{Address: address, Balances: []domain.Balance{
		{AssetCode: domain.NativeAssetCode, Amount: decimal.NewFromInt(10000)},
	}}, nil
}

func friendbotConfig(url string) config.StellarConfig {
	return config.StellarConfig{
		Network:          NetworkTestnet,
		FriendbotURL:     url,
		FundMaxAttempts:  3,
		FundInitialDelay: 1,
		RequestTimeout:   5,
	}
}

func TestFriendbot_RetriesThenSucceeds(t *testing.T) {
	addr := keypair.MustRandom().Address()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, addr, r.URL.Query().Get("addr"))
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"successful":true}`))
	}))
	defer srv.Close()

	accounts := &fakeAccounts{funded: true}
	m := metrics.New("wallet")
	fb := NewFriendbot(friendbotConfig(srv.URL), accounts, m)

	require.NoError(t, fb.Fund(context.Background(), addr))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(1), atomic.LoadInt32(&accounts.calls))
}

func TestFriendbot_AlreadyFunded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"extras":{"result_codes":{"operations":["op_already_exists"]}}}`))
	}))
	defer srv.Close()

	fb := NewFriendbot(friendbotConfig(srv.URL), &fakeAccounts{funded: true}, nil)
	assert.NoError(t, fb.Fund(context.Background(), keypair.MustRandom().Address()))
}

func TestFriendbot_GivesUp(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fb := NewFriendbot(friendbotConfig(srv.URL), &fakeAccounts{funded: false}, nil)
	err := fb.Fund(context.Background(), keypair.MustRandom().Address())
	assert.ErrorIs(t, err, domain.ErrFundingFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFriendbot_PermanentRejection(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"malformed"}`))
	}))
	defer srv.Close()

	fb := NewFriendbot(friendbotConfig(srv.URL), &fakeAccounts{}, nil)
	err := fb.Fund(context.Background(), keypair.MustRandom().Address())
	assert.ErrorIs(t, err, domain.ErrFundingFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFriendbot_Guards(t *testing.T) {
	cfg := friendbotConfig("http://127.0.0.1:0")
	cfg.Network = NetworkPublic
	fb := NewFriendbot(cfg, &fakeAccounts{}, nil)
	assert.ErrorIs(t, fb.Fund(context.Background(), keypair.MustRandom().Address()), domain.ErrFundingUnsupported)

	fb = NewFriendbot(friendbotConfig("http://127.0.0.1:0"), &fakeAccounts{}, nil)
	assert.ErrorIs(t, fb.Fund(context.Background(), "GNOTVALID"), domain.ErrInvalidAddress)
}
