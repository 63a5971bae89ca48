package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
)

// WalletModel MySQL 钱包表映射
type WalletModel struct {
	ID           uint            `gorm:"primaryKey;autoIncrement"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
	WalletID     string          `gorm:"column:wallet_id;type:varchar(36);uniqueIndex;not null"`
	Name         string          `gorm:"column:name;type:varchar(100);not null"`
	Email        string          `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string          `gorm:"column:password_hash;type:varchar(255);not null"`
	INRBalance   decimal.Decimal `gorm:"column:inr_balance;type:decimal(20,7);not null;default:0"`
}

func (WalletModel) TableName() string {
	return "wallets"
}

// WalletAddressModel 钱包各币种地址
type WalletAddressModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"column:created_at"`
	WalletID  string    `gorm:"column:wallet_id;type:varchar(36);uniqueIndex:uk_wallet_currency,priority:1;not null"`
	Currency  string    `gorm:"column:currency;type:varchar(8);uniqueIndex:uk_wallet_currency,priority:2;not null"`
	Address   string    `gorm:"column:address;type:varchar(128);index;not null"`
}

func (WalletAddressModel) TableName() string {
	return "wallet_addresses"
}

func toWalletModel(w *domain.Wallet) *WalletModel {
	if w == nil {
		return nil
	}
	return &WalletModel{
		ID:           w.ID,
		CreatedAt:    w.CreatedAt,
		UpdatedAt:    w.UpdatedAt,
		WalletID:     w.WalletID,
		Name:         w.Name,
		Email:        w.Email,
		PasswordHash: w.PasswordHash,
		INRBalance:   w.INRBalance,
	}
}

func toAddressModels(w *domain.Wallet) []WalletAddressModel {
	out := make([]WalletAddressModel, 0, len(w.Addresses))
	for _, c := range []domain.Currency{domain.CurrencyBTC, domain.CurrencyETH, domain.CurrencySOL, domain.CurrencyINR} {
		if addr, ok := w.Address(c); ok {
			out = append(out, WalletAddressModel{WalletID: w.WalletID, Currency: string(c), Address: addr})
		}
	}
	return out
}

func toWallet(model *WalletModel, addresses []WalletAddressModel) *domain.Wallet {
	if model == nil {
		return nil
	}
	w := &domain.Wallet{
		ID:           model.ID,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
		WalletID:     model.WalletID,
		Name:         model.Name,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		INRBalance:   model.INRBalance,
		Addresses:    make(map[domain.Currency]string, len(addresses)),
	}
	for _, a := range addresses {
		w.Addresses[domain.Currency(a.Currency)] = a.Address
	}
	return w
}
