package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StroopsPerLumen 1 XLM = 10^7 stroops，链上金额最多 7 位小数
const StroopsPerLumen = 10_000_000

// MinCreateAccountAmount 创建新账户的最低初始余额（2 * 0.5 XLM base reserve）
var MinCreateAccountAmount = decimal.NewFromInt(1)

// Balance 单个资产余额
type Balance struct {
	AssetCode string
	// 原生资产为空
	Issuer string
	Amount decimal.Decimal
}

// AccountPosition 账户当前的链上状态，每次从网络实时加载，不做缓存
type AccountPosition struct {
	Address  string
	Sequence int64
	Balances []Balance
}

// Native XLM 余额
func (p *AccountPosition) Native() decimal.Decimal {
	for _, b := range p.Balances {
		if b.AssetCode == NativeAssetCode && b.Issuer == "" {
			return b.Amount
		}
	}
	return decimal.Zero
}

// Funded 任一余额为正即视为已充值
func (p *AccountPosition) Funded() bool {
	for _, b := range p.Balances {
		if b.Amount.IsPositive() {
			return true
		}
	}
	return false
}

// PaymentInstruction 一笔待签名的转账指令
type PaymentInstruction struct {
	Source      string
	Destination string
	Amount      decimal.Decimal
	Memo        string
	// 目标账户不存在时用 create_account 代替 payment
	CreateDestination bool
}

// Validate 校验指令
func (i *PaymentInstruction) Validate() error {
	if !IsValidAddress(i.Source) || !IsValidAddress(i.Destination) {
		return ErrInvalidAddress
	}
	if i.Source == i.Destination {
		return ErrSelfPayment
	}
	if err := ValidateAmount(i.Amount); err != nil {
		return err
	}
	if len(i.Memo) > 28 {
		return ErrInvalidMemo
	}
	if i.CreateDestination && i.Amount.LessThan(MinCreateAccountAmount) {
		return ErrBelowReserve
	}
	return nil
}

// ValidateAmount 金额必须为正且不超过 7 位小数
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(7)) {
		return ErrInvalidAmount
	}
	return nil
}

// Submission 已签名交易的提交结果
type Submission struct {
	Hash       string
	Ledger     int32
	Successful bool
}

// LedgerOperation 账本上与账户相关的一条付款类操作
type LedgerOperation struct {
	ID         string
	Type       string
	From       string
	To         string
	Amount     decimal.Decimal
	AssetCode  string
	TxHash     string
	Successful bool
	ClosedAt   time.Time
}

// Ledger 远端账本客户端
type Ledger interface {
	// Network 网络名称：testnet 或 public
	Network() string
	// LoadAccount 加载账户状态，不存在返回 ErrAccountNotFound
	LoadAccount(ctx context.Context, address string) (*AccountPosition, error)
	// Submit 构造、签名并提交交易。签名成功后返回的 Submission 总带有 Hash，
	// 即使 err 不为空；ErrSubmissionTimeout 表示结果未知
	Submit(ctx context.Context, position *AccountPosition, instr *PaymentInstruction, seed string) (*Submission, error)
	// RecentPayments 最近的付款类操作，按时间倒序
	RecentPayments(ctx context.Context, address string, limit int) ([]LedgerOperation, error)
}

// Funder 测试网充值
type Funder interface {
	Fund(ctx context.Context, address string) error
}

// KeyPair 新生成的账户密钥
type KeyPair struct {
	Address string
	Seed    string
}

// KeyGenerator 生成账户密钥
type KeyGenerator interface {
	Generate() (KeyPair, error)
}
