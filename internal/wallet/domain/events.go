package domain

import (
	"context"
	"time"
)

// Event 钱包领域事件接口
type Event interface {
	EventType() string
	// EventKey 分区/去重键
	EventKey() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// WalletCreatedEvent 开户事件
type WalletCreatedEvent struct {
	BaseEvent
	WalletID  string            `json:"wallet_id"`
	Email     string            `json:"email"`
	Addresses map[string]string `json:"addresses"`
}

func (e WalletCreatedEvent) EventType() string { return "wallet.created" }
func (e WalletCreatedEvent) EventKey() string  { return e.WalletID }

// AccountFundedEvent friendbot 充值成功事件
type AccountFundedEvent struct {
	BaseEvent
	Address  string `json:"address"`
	Attempts int    `json:"attempts"`
}

func (e AccountFundedEvent) EventType() string { return "account.funded" }
func (e AccountFundedEvent) EventKey() string  { return e.Address }

// PaymentSettledEvent 付款结果事件，类型随状态变化
type PaymentSettledEvent struct {
	BaseEvent
	PaymentID   string   `json:"payment_id"`
	WalletID    string   `json:"wallet_id"`
	Currency    string   `json:"currency"`
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Amount      string   `json:"amount"`
	Status      string   `json:"status"`
	TxHash      string   `json:"tx_hash,omitempty"`
	ResultCodes []string `json:"result_codes,omitempty"`
}

func (e PaymentSettledEvent) EventType() string { return "payment." + e.Status }
func (e PaymentSettledEvent) EventKey() string  { return e.Source }

// NewPaymentSettledEvent 由付款构造事件
func NewPaymentSettledEvent(p *Payment) PaymentSettledEvent {
	return PaymentSettledEvent{
		BaseEvent:   BaseEvent{Timestamp: time.Now().UTC()},
		PaymentID:   p.ID,
		WalletID:    p.WalletID,
		Currency:    string(p.Currency),
		Source:      p.Source,
		Destination: p.Destination,
		Amount:      p.Amount.String(),
		Status:      string(p.Status),
		TxHash:      p.TxHash,
		ResultCodes: p.ResultCodes,
	}
}

// TradeExecutedEvent 兑换事件
type TradeExecutedEvent struct {
	BaseEvent
	TradeID  string `json:"trade_id"`
	WalletID string `json:"wallet_id"`
	Side     string `json:"side"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   string `json:"amount"`
	Received string `json:"received"`
	Status   string `json:"status"`
}

func (e TradeExecutedEvent) EventType() string { return "trade." + e.Status }
func (e TradeExecutedEvent) EventKey() string  { return e.WalletID }

// TradeReconcileEvent 链上已付款但 INR 未入账，需人工对账
type TradeReconcileEvent struct {
	BaseEvent
	TradeID   string `json:"trade_id"`
	WalletID  string `json:"wallet_id"`
	TxHash    string `json:"tx_hash"`
	INRAmount string `json:"inr_amount"`
	Reason    string `json:"reason"`
}

func (e TradeReconcileEvent) EventType() string { return "trade.reconcile_required" }
func (e TradeReconcileEvent) EventKey() string  { return e.WalletID }

// EventPublisher 事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
