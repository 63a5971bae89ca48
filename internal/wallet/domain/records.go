package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide 兑换方向
type TradeSide string

const (
	// TradeSell 链上资产换 INR
	TradeSell TradeSide = "sell"
	// TradeBuy INR 换链上资产
	TradeBuy TradeSide = "buy"
)

// TradeResult 兑换结果
type TradeResult struct {
	ID        string
	Side      TradeSide
	FromAsset string
	ToAsset   string
	// 付出的数量（FromAsset 计价）
	Amount decimal.Decimal
	// 得到的数量（ToAsset 计价）
	Received  decimal.Decimal
	Rate      decimal.Decimal
	Timestamp time.Time
	TxHash    string
	Status    PaymentStatus
}

// TransactionType 展示用交易类型
type TransactionType string

const (
	TransactionSent     TransactionType = "sent"
	TransactionReceived TransactionType = "received"
	TransactionFunded   TransactionType = "funded"
)

// TransactionRecord 交易列表展示记录，由网络返回数据构造，不落库
type TransactionRecord struct {
	ID     string
	Type   TransactionType
	// 对手方地址
	Name   string
	Amount decimal.Decimal
	// 钱包币种标签
	Wallet string
	Date   time.Time
	Status PaymentStatus
	TxHash string
}

// RecordFromOperation 以 owner 视角将账本操作转换为展示记录
func RecordFromOperation(op LedgerOperation, owner string, wallet Currency) TransactionRecord {
	rec := TransactionRecord{
		ID:     op.ID,
		Amount: op.Amount,
		Wallet: wallet.Label(),
		Date:   op.ClosedAt,
		TxHash: op.TxHash,
		Status: PaymentCompleted,
	}
	if !op.Successful {
		rec.Status = PaymentFailed
	}

	switch {
	case op.Type == "create_account" && op.To == owner:
		rec.Type = TransactionFunded
		rec.Name = op.From
	case op.From == owner:
		rec.Type = TransactionSent
		rec.Name = op.To
	default:
		rec.Type = TransactionReceived
		rec.Name = op.From
	}
	return rec
}
