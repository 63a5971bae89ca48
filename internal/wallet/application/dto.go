package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
)

// 账户未充值时给调用方的建议操作
const (
	ActionFund   = "Use /api/wallet/fund-account to fund this wallet"
	ActionManual = "Or visit https://laboratory.stellar.org/#account-creator to fund it manually"
	ActionRetry  = "Try again later or contact support"
)

// CreateWalletCommand 开户命令
type CreateWalletCommand struct {
	Name     string
	Email    string
	Password string
}

// FundingResult 单个地址的开户充值结果
type FundingResult struct {
	PublicKey string `json:"public_key,omitempty"`
	Funded    bool   `json:"funded"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CreateWalletResult 开户结果
type CreateWalletResult struct {
	WalletID       string                   `json:"wallet_id"`
	Addresses      map[string]string        `json:"wallet_addresses"`
	FundingResults map[string]FundingResult `json:"funding_results"`
	Warnings       []string                 `json:"warnings,omitempty"`
	CreatedAt      time.Time                `json:"timestamp"`
}

// FundAccountResult friendbot 充值结果
type FundAccountResult struct {
	PublicKey     string          `json:"public_key"`
	Balance       decimal.Decimal `json:"balance"`
	AlreadyFunded bool            `json:"already_funded"`
	Funded        bool            `json:"funded"`
	Network       string          `json:"network"`
}

// AccessCommand 登录查看钱包
type AccessCommand struct {
	Email    string
	Password string
}

// WalletStatus 单币种钱包状态
type WalletStatus struct {
	Funded       bool            `json:"funded"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	Network      string          `json:"network"`
	PublicKey    string          `json:"public_key,omitempty"`
	NeedsFunding bool            `json:"needs_funding"`
	Actions      []string        `json:"actions,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// UserInfo 钱包所有者信息
type UserInfo struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessResult 钱包访问结果，附带会话令牌
type AccessResult struct {
	WalletID  string                  `json:"wallet_id"`
	Addresses map[string]string       `json:"wallet_addresses"`
	Status    map[string]WalletStatus `json:"wallet_status"`
	User      UserInfo                `json:"user"`
	Network   string                  `json:"network"`
	Warnings  []string                `json:"warnings,omitempty"`
	Session   *Session                `json:"session"`
}

// AccountStatus 账户检查结果
type AccountStatus struct {
	PublicKey string           `json:"public_key"`
	Exists    bool             `json:"exists"`
	Funded    bool             `json:"funded"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
	Network   string           `json:"network"`
	Message   string           `json:"message"`
	Actions   []string         `json:"actions,omitempty"`
}

// Session 登录会话
type Session struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ExpiresAt time.Time `json:"expires_at"`
	WalletID  string    `json:"-"`
}

// Principal 已认证的调用方
type Principal struct {
	WalletID  string
	SessionID string
}

// SendPaymentCommand 付款命令
type SendPaymentCommand struct {
	WalletID    string
	Currency    string
	Destination string
	Amount      decimal.Decimal
	Memo        string
}

// PaymentResult 付款结果
type PaymentResult struct {
	PaymentID          string               `json:"payment_id"`
	Status             domain.PaymentStatus `json:"status"`
	Currency           string               `json:"currency"`
	Source             string               `json:"source"`
	Destination        string               `json:"destination"`
	Amount             decimal.Decimal      `json:"amount"`
	Memo               string               `json:"memo,omitempty"`
	CreatedDestination bool                 `json:"created_destination"`
	TxHash             string               `json:"tx_hash,omitempty"`
	Ledger             int32                `json:"ledger,omitempty"`
	ResultCodes        []string             `json:"result_codes,omitempty"`
	// 对账后的源账户 XLM 余额
	Balance *decimal.Decimal `json:"balance,omitempty"`
	Message string           `json:"message"`
}

func toPaymentResult(p *domain.Payment) *PaymentResult {
	return &PaymentResult{
		PaymentID:          p.ID,
		Status:             p.Status,
		Currency:           string(p.Currency),
		Source:             p.Source,
		Destination:        p.Destination,
		Amount:             p.Amount,
		Memo:               p.Memo,
		CreatedDestination: p.CreatedDestination,
		TxHash:             p.TxHash,
		Ledger:             p.Ledger,
		ResultCodes:        p.ResultCodes,
	}
}

// TradeCommand 兑换命令，Amount 以 From 资产计价
type TradeCommand struct {
	WalletID string
	From     string
	To       string
	Amount   decimal.Decimal
}

// HistoryQuery 交易记录查询
type HistoryQuery struct {
	WalletID string
	// 为空时查询全部链上钱包
	Currency string
	Limit    int
}
