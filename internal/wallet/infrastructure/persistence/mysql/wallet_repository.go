// Package mysql 钱包的 MySQL 持久化实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct{ db *gorm.DB }

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) domain.WalletRepository {
	return &walletRepository{db: db}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&WalletModel{}, &WalletAddressModel{})
}

func (r *walletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	model := toWalletModel(wallet)
	addresses := toAddressModels(wallet)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if len(addresses) == 0 {
			return nil
		}
		return tx.Create(&addresses).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}

	wallet.ID = model.ID
	wallet.CreatedAt = model.CreatedAt
	wallet.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *walletRepository) GetByEmail(ctx context.Context, email string) (*domain.Wallet, error) {
	return r.getBy(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *walletRepository) GetByWalletID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	return r.getBy(ctx, "wallet_id = ?", walletID)
}

func (r *walletRepository) getBy(ctx context.Context, query string, arg any) (*domain.Wallet, error) {
	db := r.db.WithContext(ctx)

	var model WalletModel
	err := db.Where(query, arg).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	var addresses []WalletAddressModel
	if err := db.Where("wallet_id = ?", model.WalletID).Find(&addresses).Error; err != nil {
		return nil, err
	}
	return toWallet(&model, addresses), nil
}

// AdjustINR 行锁内读改写，保证并发兑换下余额不为负
func (r *walletRepository) AdjustINR(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model WalletModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("wallet_id = ?", walletID).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrWalletNotFound
		}
		if err != nil {
			return err
		}

		w := toWallet(&model, nil)
		if err := w.AdjustINR(delta); err != nil {
			return err
		}
		if err := tx.Model(&WalletModel{}).
			Where("id = ?", model.ID).
			Update("inr_balance", w.INRBalance).Error; err != nil {
			return err
		}
		balance = w.INRBalance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (r *walletRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
