package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
)

// inrPlaces INR 记账精度
const inrPlaces = 2

// TradeService 链上钱包与 INR 钱包之间的兑换
type TradeService struct {
	repo          domain.WalletRepository
	payments      *PaymentService
	quoter        domain.Quoter
	publisher     domain.EventPublisher
	metrics       *metrics.Metrics
	adminReceiver string
}

func NewTradeService(
	repo domain.WalletRepository,
	payments *PaymentService,
	quoter domain.Quoter,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	adminReceiver string,
) *TradeService {
	return &TradeService{
		repo:          repo,
		payments:      payments,
		quoter:        quoter,
		publisher:     publisher,
		metrics:       m,
		adminReceiver: adminReceiver,
	}
}

// Execute 执行兑换
// sell: 链上钱包向平台收款地址付 XLM，成功后按报价入账 INR
// buy: 先扣 INR，平台出款账户向用户付 XLM，失败则退回 INR
func (s *TradeService) Execute(ctx context.Context, cmd TradeCommand) (*domain.TradeResult, error) {
	from, err := domain.ParseCurrency(cmd.From)
	if err != nil {
		return nil, err
	}
	to, err := domain.ParseCurrency(cmd.To)
	if err != nil {
		return nil, err
	}
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var side domain.TradeSide
	switch {
	case from.OnLedger() && to == domain.CurrencyINR:
		side = domain.TradeSell
	case from == domain.CurrencyINR && to.OnLedger():
		side = domain.TradeBuy
	default:
		return nil, domain.ErrUnsupportedTrade
	}

	rate, err := s.quoter.Quote(ctx, domain.NativeAssetCode, domain.FiatAssetCode)
	if err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("invalid quote %s for %s/%s", rate, domain.NativeAssetCode, domain.FiatAssetCode)
	}

	trade := &domain.TradeResult{
		ID:        uuid.NewString(),
		Side:      side,
		FromAsset: from.Label(),
		ToAsset:   to.Label(),
		Amount:    cmd.Amount,
		Rate:      rate,
		Timestamp: time.Now().UTC(),
		Status:    domain.PaymentPending,
	}

	if side == domain.TradeSell {
		err = s.sell(ctx, cmd.WalletID, from, trade)
	} else {
		err = s.buy(ctx, cmd.WalletID, to, trade)
	}

	if s.metrics != nil {
		s.metrics.RecordTrade(string(side), string(trade.Status))
	}
	publishEvent(ctx, s.publisher, domain.TradeExecutedEvent{
		BaseEvent: domain.BaseEvent{Timestamp: trade.Timestamp},
		TradeID:   trade.ID,
		WalletID:  cmd.WalletID,
		Side:      string(side),
		From:      trade.FromAsset,
		To:        trade.ToAsset,
		Amount:    trade.Amount.String(),
		Received:  trade.Received.String(),
		Status:    string(trade.Status),
	})
	return trade, err
}

func (s *TradeService) sell(ctx context.Context, walletID string, from domain.Currency, trade *domain.TradeResult) error {
	if s.adminReceiver == "" {
		trade.Status = domain.PaymentFailed
		return domain.ErrTreasuryUnavailable
	}
	if !trade.Amount.Equal(trade.Amount.Truncate(7)) {
		trade.Status = domain.PaymentFailed
		return domain.ErrInvalidAmount
	}

	res, err := s.payments.Send(ctx, SendPaymentCommand{
		WalletID:    walletID,
		Currency:    string(from),
		Destination: s.adminReceiver,
		Amount:      trade.Amount,
		Memo:        "sell " + from.Label(),
	})
	if res != nil {
		trade.TxHash = res.TxHash
		trade.Status = res.Status
	}
	if err != nil {
		trade.Status = domain.PaymentFailed
		return err
	}
	if res.Status != domain.PaymentCompleted {
		// 链上结果未知，INR 待人工对账后入账
		logger.Warn(ctx, "sell trade pending, INR not credited", "trade_id", trade.ID, "hash", res.TxHash)
		return nil
	}

	credit := trade.Amount.Mul(trade.Rate).Round(inrPlaces)
	if _, err := s.repo.AdjustINR(ctx, walletID, credit); err != nil {
		logger.Error(ctx, "credit INR after sell failed", "trade_id", trade.ID, "hash", res.TxHash, "amount", credit.String(), "error", err)
		publishEvent(ctx, s.publisher, domain.TradeReconcileEvent{
			BaseEvent: domain.BaseEvent{Timestamp: time.Now().UTC()},
			TradeID:   trade.ID,
			WalletID:  walletID,
			TxHash:    res.TxHash,
			INRAmount: credit.String(),
			Reason:    err.Error(),
		})
		return fmt.Errorf("credit INR: %w", err)
	}
	trade.Received = credit
	return nil
}

func (s *TradeService) buy(ctx context.Context, walletID string, to domain.Currency, trade *domain.TradeResult) error {
	wallet, err := s.repo.GetByWalletID(ctx, walletID)
	if err != nil {
		trade.Status = domain.PaymentFailed
		return err
	}
	destination, ok := wallet.Address(to)
	if !ok {
		trade.Status = domain.PaymentFailed
		return fmt.Errorf("%w: no %s address", domain.ErrWalletNotFound, to)
	}

	debit := trade.Amount.Round(inrPlaces)
	lumens := debit.Div(trade.Rate).Truncate(7)
	if !debit.IsPositive() || !lumens.IsPositive() {
		trade.Status = domain.PaymentFailed
		return domain.ErrInvalidAmount
	}
	trade.Amount = debit

	if _, err := s.repo.AdjustINR(ctx, walletID, debit.Neg()); err != nil {
		trade.Status = domain.PaymentFailed
		return err
	}

	res, err := s.payments.sendFromTreasury(ctx, to, destination, lumens, "buy "+to.Label())
	if res != nil {
		trade.TxHash = res.TxHash
		trade.Status = res.Status
	}
	if err != nil || res == nil || res.Status == domain.PaymentFailed {
		trade.Status = domain.PaymentFailed
		s.refund(ctx, walletID, debit, trade)
		if err == nil {
			err = domain.ErrPaymentFailed
		}
		return err
	}
	if res.Status == domain.PaymentPending {
		logger.Warn(ctx, "buy trade pending, INR debit kept", "trade_id", trade.ID, "hash", res.TxHash)
		return nil
	}
	trade.Received = lumens
	return nil
}

func (s *TradeService) refund(ctx context.Context, walletID string, amount decimal.Decimal, trade *domain.TradeResult) {
	if _, err := s.repo.AdjustINR(ctx, walletID, amount); err != nil {
		logger.Error(ctx, "refund INR failed", "trade_id", trade.ID, "amount", amount.String(), "error", err)
		return
	}
	logger.Info(ctx, "INR refunded", "trade_id", trade.ID, "amount", amount.String())
}
