package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
)

// treasuryWalletID 平台出款账户在付款记录中的钱包 ID
const treasuryWalletID = "treasury"

// PaymentOptions 付款参数
type PaymentOptions struct {
	LockTTL time.Duration
	// 单操作交易的手续费，单位 stroop
	BaseFee int64
}

// PaymentService 付款提交流程
// 每笔付款同步提交一次，不排队、不重试；账户状态每次从网络实时加载
type PaymentService struct {
	repo      domain.WalletRepository
	ledger    domain.Ledger
	secrets   domain.SecretStore
	lock      domain.SubmissionLock
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	opts      PaymentOptions
}

func NewPaymentService(
	repo domain.WalletRepository,
	ledger domain.Ledger,
	secrets domain.SecretStore,
	lock domain.SubmissionLock,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	opts PaymentOptions,
) *PaymentService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Minute
	}
	if opts.BaseFee <= 0 {
		opts.BaseFee = 100
	}
	return &PaymentService{
		repo:      repo,
		ledger:    ledger,
		secrets:   secrets,
		lock:      lock,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
	}
}

// transfer 一次待提交的转账
type transfer struct {
	walletID    string
	currency    domain.Currency
	source      string
	secretKey   string
	seed        string
	destination string
	amount      decimal.Decimal
	memo        string
}

// Send 从调用方钱包的指定币种账户付款
func (s *PaymentService) Send(ctx context.Context, cmd SendPaymentCommand) (*PaymentResult, error) {
	currency, err := domain.ParseCurrency(cmd.Currency)
	if err != nil {
		return nil, err
	}
	if !currency.OnLedger() {
		return nil, domain.ErrUnsupportedCurrency
	}

	wallet, err := s.repo.GetByWalletID(ctx, cmd.WalletID)
	if err != nil {
		return nil, err
	}
	source, ok := wallet.Address(currency)
	if !ok {
		return nil, fmt.Errorf("%w: no %s address", domain.ErrWalletNotFound, currency)
	}

	return s.submit(ctx, transfer{
		walletID:    wallet.WalletID,
		currency:    currency,
		source:      source,
		secretKey:   domain.SecretKey(wallet.WalletID, currency),
		destination: cmd.Destination,
		amount:      cmd.Amount,
		memo:        cmd.Memo,
	})
}

// sendFromTreasury 由平台出款账户付款
func (s *PaymentService) sendFromTreasury(ctx context.Context, currency domain.Currency, destination string, amount decimal.Decimal, memo string) (*PaymentResult, error) {
	seed, err := s.secrets.Get(ctx, domain.TreasurySecretKey)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil, domain.ErrTreasuryUnavailable
	}
	if err != nil {
		return nil, err
	}
	source, err := domain.AddressFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTreasuryUnavailable, err)
	}

	return s.submit(ctx, transfer{
		walletID:    treasuryWalletID,
		currency:    currency,
		source:      source,
		seed:        seed,
		destination: destination,
		amount:      amount,
		memo:        memo,
	})
}

func (s *PaymentService) submit(ctx context.Context, t transfer) (*PaymentResult, error) {
	start := time.Now()

	instr := &domain.PaymentInstruction{
		Source:      t.source,
		Destination: t.destination,
		Amount:      t.amount,
		Memo:        t.memo,
	}
	if err := instr.Validate(); err != nil {
		return nil, err
	}

	release, err := s.lock.Acquire(ctx, t.source, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	position, err := s.ledger.LoadAccount(ctx, t.source)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrAccountNotFunded
	}
	if err != nil {
		return nil, s.networkFailure(ctx, "load source account", t.source, err)
	}
	if !position.Funded() {
		return nil, domain.ErrAccountNotFunded
	}

	// 目标账户不存在时改用 create_account
	if _, err := s.ledger.LoadAccount(ctx, t.destination); err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, s.networkFailure(ctx, "probe destination account", t.destination, err)
		}
		instr.CreateDestination = true
		if err := instr.Validate(); err != nil {
			return nil, err
		}
	}

	fee := decimal.New(s.opts.BaseFee, -7)
	if position.Native().LessThan(instr.Amount.Add(fee)) {
		return nil, domain.ErrInsufficientFunds
	}

	seed := t.seed
	if seed == "" {
		if seed, err = s.secrets.Get(ctx, t.secretKey); err != nil {
			return nil, fmt.Errorf("load signing key: %w", err)
		}
	}

	payment := domain.NewPayment(t.walletID, t.currency, instr)
	sub, submitErr := s.ledger.Submit(ctx, position, instr, seed)
	settle(payment, sub, submitErr)

	result := toPaymentResult(payment)
	switch payment.Status {
	case domain.PaymentCompleted:
		result.Message = "Payment completed"
		if pos, err := s.ledger.LoadAccount(ctx, t.source); err == nil {
			balance := pos.Native()
			result.Balance = &balance
		} else {
			logger.Warn(ctx, "reconcile source account failed", "address", t.source, "error", err)
		}
		logger.Info(ctx, "payment completed", "payment_id", payment.ID, "hash", payment.TxHash, "ledger", payment.Ledger)
	case domain.PaymentPending:
		result.Message = "Transaction submitted but not yet confirmed; look it up by tx_hash"
		logger.Warn(ctx, "payment outcome unknown", "payment_id", payment.ID, "hash", payment.TxHash, "error", submitErr)
	default:
		result.Message = domain.ErrPaymentFailed.Error()
		logger.Error(ctx, "payment failed", "payment_id", payment.ID, "hash", payment.TxHash, "codes", payment.ResultCodes, "error", submitErr)
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(string(payment.Status), time.Since(start).Seconds())
	}
	publishEvent(ctx, s.publisher, domain.NewPaymentSettledEvent(payment))

	if payment.Status == domain.PaymentFailed {
		cause := submitErr
		if cause == nil {
			cause = errors.New(payment.FailureReason)
		}
		return result, fmt.Errorf("%w: %w", domain.ErrPaymentFailed, cause)
	}
	return result, nil
}

// settle 根据提交结果推进付款状态
func settle(payment *domain.Payment, sub *domain.Submission, err error) {
	hash := ""
	if sub != nil {
		hash = sub.Hash
	}

	var subErr *domain.SubmissionError
	switch {
	case err == nil && sub.Successful:
		_ = payment.Complete(hash, sub.Ledger)
	case err == nil:
		_ = payment.Fail("transaction was not successful", nil)
	case errors.Is(err, domain.ErrSubmissionTimeout):
		_ = payment.MarkUnknown(hash)
	case errors.As(err, &subErr):
		_ = payment.Fail(subErr.Error(), subErr.Codes())
	default:
		_ = payment.Fail(err.Error(), nil)
	}
	if payment.TxHash == "" {
		payment.TxHash = hash
	}
}

func (s *PaymentService) networkFailure(ctx context.Context, step, address string, err error) error {
	logger.Error(ctx, "ledger request failed", "step", step, "address", address, "error", err)
	if s.metrics != nil {
		s.metrics.RecordPayment(string(domain.PaymentFailed), 0)
	}
	return fmt.Errorf("%w: %w", domain.ErrPaymentFailed, err)
}
