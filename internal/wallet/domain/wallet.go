package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost bcrypt 成本因子
var PasswordCost = bcrypt.DefaultCost

// MaxPasswordBytes bcrypt 只接受 72 字节以内的输入
const MaxPasswordBytes = 72

// Wallet 钱包聚合根
// 一个用户对应一个钱包，持有每个币种的地址与 INR 余额；签名私钥不在聚合内，存放于 SecretStore
type Wallet struct {
	ID uint
	// 钱包 ID (业务主键)
	WalletID string
	Name     string
	Email    string
	// bcrypt 哈希
	PasswordHash string
	// 币种 -> 地址，链上币种为 Stellar 公钥
	Addresses map[Currency]string
	// INR 余额，不允许为负
	INRBalance decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewWallet 创建钱包，校验必填字段并哈希密码
func NewWallet(name, email, password string, initialINR decimal.Decimal) (*Wallet, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if initialINR.IsNegative() {
		return nil, ErrInvalidAmount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	w := &Wallet{
		WalletID:     uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Addresses:    make(map[Currency]string),
		INRBalance:   initialINR,
	}
	w.Addresses[CurrencyINR] = INRAddress(email)
	return w, nil
}

// NormalizeEmail 去空格并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// INRAddress 法币钱包的虚拟地址
func INRAddress(email string) string {
	return "inr_wallet_" + strings.ReplaceAll(email, "@", "_at_")
}

// CheckPassword 校验密码
func (w *Wallet) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(w.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// SetAddress 绑定链上地址
func (w *Wallet) SetAddress(c Currency, address string) {
	if w.Addresses == nil {
		w.Addresses = make(map[Currency]string)
	}
	w.Addresses[c] = address
}

// Address 获取币种地址
func (w *Wallet) Address(c Currency) (string, bool) {
	addr, ok := w.Addresses[c]
	return addr, ok && addr != ""
}

// LedgerCurrencies 已绑定链上地址的币种
func (w *Wallet) LedgerCurrencies() []Currency {
	out := make([]Currency, 0, len(w.Addresses))
	for _, c := range []Currency{CurrencyBTC, CurrencyETH, CurrencySOL} {
		if _, ok := w.Address(c); ok {
			out = append(out, c)
		}
	}
	return out
}

// AdjustINR 调整 INR 余额，结果不得为负
func (w *Wallet) AdjustINR(delta decimal.Decimal) error {
	next := w.INRBalance.Add(delta)
	if next.IsNegative() {
		return ErrInsufficientINR
	}
	w.INRBalance = next
	return nil
}
