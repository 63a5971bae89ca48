package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus 付款状态，pending -> completed | failed
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Terminal 是否为终态
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}

// Payment 一次付款
type Payment struct {
	ID          string
	WalletID    string
	Currency    Currency
	Source      string
	Destination string
	Amount      decimal.Decimal
	Memo        string
	// 目标账户由本次交易创建
	CreatedDestination bool

	Status        PaymentStatus
	TxHash        string
	Ledger        int32
	FailureReason string
	ResultCodes   []string

	CreatedAt time.Time
	SettledAt time.Time
}

// NewPayment 创建 pending 状态的付款
func NewPayment(walletID string, currency Currency, instr *PaymentInstruction) *Payment {
	return &Payment{
		ID:                 uuid.NewString(),
		WalletID:           walletID,
		Currency:           currency,
		Source:             instr.Source,
		Destination:        instr.Destination,
		Amount:             instr.Amount,
		Memo:               instr.Memo,
		CreatedDestination: instr.CreateDestination,
		Status:             PaymentPending,
		CreatedAt:          time.Now().UTC(),
	}
}

// Complete 网络确认成功
func (p *Payment) Complete(hash string, ledger int32) error {
	if p.Status.Terminal() {
		return ErrInvalidTransition
	}
	p.Status = PaymentCompleted
	p.TxHash = hash
	p.Ledger = ledger
	p.SettledAt = time.Now().UTC()
	return nil
}

// Fail 网络明确拒绝或提交前失败
func (p *Payment) Fail(reason string, codes []string) error {
	if p.Status.Terminal() {
		return ErrInvalidTransition
	}
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.ResultCodes = codes
	p.SettledAt = time.Now().UTC()
	return nil
}

// MarkUnknown 提交超时，保持 pending 并记录哈希以便后续查询
func (p *Payment) MarkUnknown(hash string) error {
	if p.Status.Terminal() {
		return ErrInvalidTransition
	}
	p.TxHash = hash
	return nil
}
