// Package stellar 基于 Horizon 的账本适配器
package stellar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/operations"
	"github.com/stellar/go/txnbuild"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/config"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
)

const (
	NetworkTestnet = "testnet"
	NetworkPublic  = "public"
)

// Passphrase 网络口令
func Passphrase(name string) string {
	if name == NetworkPublic {
		return network.PublicNetworkPassphrase
	}
	return network.TestNetworkPassphrase
}

// NewHorizonClient 根据配置构造 Horizon 客户端
func NewHorizonClient(cfg config.StellarConfig) *horizonclient.Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &horizonclient.Client{
		HorizonURL: cfg.ResolvedHorizonURL(),
		HTTP:       &http.Client{Timeout: timeout},
	}
}

// Horizon domain.Ledger 的 Horizon 实现
type Horizon struct {
	client     horizonclient.ClientInterface
	network    string
	passphrase string
	baseFee    int64
	txTimeout  int64
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Metrics
}

// NewHorizon 创建 Horizon 账本，m 可为空
func NewHorizon(client horizonclient.ClientInterface, cfg config.StellarConfig, m *metrics.Metrics) *Horizon {
	baseFee := cfg.BaseFee
	if baseFee < txnbuild.MinBaseFee {
		baseFee = txnbuild.MinBaseFee
	}
	return &Horizon{
		client:     client,
		network:    cfg.Network,
		passphrase: Passphrase(cfg.Network),
		baseFee:    baseFee,
		txTimeout:  cfg.TxTimeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "horizon",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			IsSuccessful: isHealthyResponse,
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
		metrics: m,
	}
}

// isHealthyResponse 业务层面的拒绝不计入熔断失败
func isHealthyResponse(err error) bool {
	if err == nil || horizonclient.IsNotFoundError(err) {
		return true
	}
	if herr := horizonclient.GetError(err); herr != nil {
		return herr.Problem.Status < http.StatusInternalServerError
	}
	return false
}

func (h *Horizon) Network() string {
	return h.network
}

// errNotSent 请求未发出
var errNotSent = errors.New("request not sent")

// call 统一处理熔断、指标与上下文取消
func (h *Horizon) call(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotSent, err)
	}
	start := time.Now()
	res, err := h.breaker.Execute(fn)
	if h.metrics != nil {
		var failure error
		if !isHealthyResponse(err) {
			failure = err
		}
		h.metrics.ObserveLedgerCall(op, time.Since(start).Seconds(), failure)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	return res, err
}

// Ping 请求 Horizon 根资源，用于健康检查
func (h *Horizon) Ping(ctx context.Context) error {
	_, err := h.call(ctx, "root", func() (any, error) {
		return h.client.Root()
	})
	return err
}

// LoadAccount 实时加载账户序列号与余额
func (h *Horizon) LoadAccount(ctx context.Context, address string) (*domain.AccountPosition, error) {
	res, err := h.call(ctx, "account_detail", func() (any, error) {
		return h.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("load account %s: %w", address, err)
	}
	account := res.(hProtocol.Account)

	position := &domain.AccountPosition{
		Address:  account.AccountID,
		Sequence: account.Sequence,
		Balances: make([]domain.Balance, 0, len(account.Balances)),
	}
	for _, b := range account.Balances {
		amount, err := decimal.NewFromString(b.Balance)
		if err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", b.Balance, err)
		}
		code := b.Code
		if b.Type == "native" {
			code = domain.NativeAssetCode
		}
		position.Balances = append(position.Balances, domain.Balance{
			AssetCode: code,
			Issuer:    b.Issuer,
			Amount:    amount,
		})
	}
	return position, nil
}

// Submit 构造单操作交易，使用 seed 签名后提交
func (h *Horizon) Submit(ctx context.Context, position *domain.AccountPosition, instr *domain.PaymentInstruction, seed string) (*domain.Submission, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return nil, fmt.Errorf("parse signing seed: %w", err)
	}
	if kp.Address() != instr.Source {
		return nil, fmt.Errorf("signing key does not match source account %s", instr.Source)
	}

	tx, err := h.buildTransaction(position, instr)
	if err != nil {
		return nil, err
	}
	tx, err = tx.Sign(h.passphrase, kp)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	hash, err := tx.HashHex(h.passphrase)
	if err != nil {
		return nil, fmt.Errorf("hash transaction: %w", err)
	}
	sub := &domain.Submission{Hash: hash}

	res, err := h.call(ctx, "submit_transaction", func() (any, error) {
		return h.client.SubmitTransaction(tx)
	})
	if err != nil {
		return sub, h.submissionError(ctx, hash, err)
	}

	result := res.(hProtocol.Transaction)
	sub.Ledger = result.Ledger
	sub.Successful = result.Successful
	if result.Hash != "" {
		sub.Hash = result.Hash
	}
	return sub, nil
}

func (h *Horizon) buildTransaction(position *domain.AccountPosition, instr *domain.PaymentInstruction) (*txnbuild.Transaction, error) {
	amount := instr.Amount.StringFixed(7)

	var op txnbuild.Operation
	if instr.CreateDestination {
		op = &txnbuild.CreateAccount{
			Destination: instr.Destination,
			Amount:      amount,
		}
	} else {
		op = &txnbuild.Payment{
			Destination: instr.Destination,
			Amount:      amount,
			Asset:       txnbuild.NativeAsset{},
		}
	}

	params := txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: position.Address, Sequence: position.Sequence},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              h.baseFee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(h.txTimeout)},
	}
	if instr.Memo != "" {
		params.Memo = txnbuild.MemoText(instr.Memo)
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	return tx, nil
}

// submissionError 将提交失败归类：明确拒绝、超时未知或网络不可达
func (h *Horizon) submissionError(ctx context.Context, hash string, err error) error {
	if errors.Is(err, horizonclient.ErrAccountRequiresMemo) {
		return fmt.Errorf("%w: destination requires a memo", domain.ErrInvalidMemo)
	}
	if errors.Is(err, domain.ErrLedgerUnavailable) {
		return err
	}
	if errors.Is(err, errNotSent) {
		return fmt.Errorf("%w: %w", domain.ErrPaymentFailed, err)
	}

	herr := horizonclient.GetError(err)
	if herr == nil {
		// 请求可能已送达，结果未知
		logger.Warn(ctx, "transaction submission transport error", "hash", hash, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrSubmissionTimeout, err)
	}
	if herr.Problem.Status == http.StatusGatewayTimeout {
		return domain.ErrSubmissionTimeout
	}

	codes, cerr := herr.ResultCodes()
	if cerr != nil || codes == nil {
		return fmt.Errorf("%w: %s", domain.ErrPaymentFailed, herr.Problem.Title)
	}
	return &domain.SubmissionError{
		TransactionCode: codes.TransactionCode,
		OperationCodes:  codes.OperationCodes,
	}
}

// RecentPayments 账户最近的付款类操作
func (h *Horizon) RecentPayments(ctx context.Context, address string, limit int) ([]domain.LedgerOperation, error) {
	res, err := h.call(ctx, "payments", func() (any, error) {
		return h.client.Payments(horizonclient.OperationRequest{
			ForAccount: address,
			Order:      horizonclient.OrderDesc,
			Limit:      uint(limit),
		})
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("list payments for %s: %w", address, err)
	}
	page := res.(operations.OperationsPage)

	out := make([]domain.LedgerOperation, 0, len(page.Embedded.Records))
	for _, record := range page.Embedded.Records {
		op, ok, err := toLedgerOperation(record)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, op)
		}
	}
	return out, nil
}

// toLedgerOperation 只保留原生资产的 payment 与 create_account
func toLedgerOperation(record operations.Operation) (domain.LedgerOperation, bool, error) {
	var (
		base   operations.Base
		from   string
		to     string
		amount string
	)
	switch op := record.(type) {
	case operations.Payment:
		if op.Asset.Type != "native" {
			return domain.LedgerOperation{}, false, nil
		}
		base, from, to, amount = op.Base, op.From, op.To, op.Amount
	case operations.CreateAccount:
		base, from, to, amount = op.Base, op.Funder, op.Account, op.StartingBalance
	default:
		return domain.LedgerOperation{}, false, nil
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.LedgerOperation{}, false, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return domain.LedgerOperation{
		ID:         base.ID,
		Type:       base.Type,
		From:       from,
		To:         to,
		Amount:     value,
		AssetCode:  domain.NativeAssetCode,
		TxHash:     base.TransactionHash,
		Successful: base.TransactionSuccessful,
		ClosedAt:   base.LedgerCloseTime,
	}, true, nil
}

// KeyGenerator 随机生成 ed25519 密钥对
type KeyGenerator struct{}

func (KeyGenerator) Generate() (domain.KeyPair, error) {
	kp, err := keypair.Random()
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return domain.KeyPair{Address: kp.Address(), Seed: kp.Seed()}, nil
}
