package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// WalletRepository 钱包仓储接口
type WalletRepository interface {
	// Create 保存新钱包，邮箱重复返回 ErrEmailTaken
	Create(ctx context.Context, wallet *Wallet) error
	// GetByEmail 按邮箱查询，不存在返回 ErrWalletNotFound
	GetByEmail(ctx context.Context, email string) (*Wallet, error)
	// GetByWalletID 按钱包 ID 查询，不存在返回 ErrWalletNotFound
	GetByWalletID(ctx context.Context, walletID string) (*Wallet, error)
	// AdjustINR 在行锁内调整 INR 余额并返回新余额，余额不足返回 ErrInsufficientINR
	AdjustINR(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error)
	// Ping 存储连通性检查
	Ping(ctx context.Context) error
}

// TreasurySecretKey 平台出款账户在 SecretStore 中的键
const TreasurySecretKey = "treasury"

// SecretKey 钱包某币种私钥在 SecretStore 中的键
func SecretKey(walletID string, c Currency) string {
	return walletID + "/" + string(c)
}

// SecretStore 签名私钥存储
type SecretStore interface {
	Put(ctx context.Context, key, seed string) error
	// Get 不存在返回 ErrSecretNotFound
	Get(ctx context.Context, key string) (string, error)
}

// SessionStore 登录会话存储
type SessionStore interface {
	Save(ctx context.Context, sessionID, walletID string, ttl time.Duration) error
	Exists(ctx context.Context, sessionID string) (bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// SubmissionLock 同一源账户同一时刻只允许一笔提交，避免序列号冲突
type SubmissionLock interface {
	// Acquire 获取锁，已被持有返回 ErrSubmissionInProgress
	Acquire(ctx context.Context, address string, ttl time.Duration) (release func(), err error)
}

// Quoter 行情报价
type Quoter interface {
	// Quote 1 单位 base 折合多少 quote
	Quote(ctx context.Context, base, quote string) (decimal.Decimal, error)
}
