package application

import (
	"context"
	"errors"
	"sort"

	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// HistoryService 交易记录，实时从网络读取
type HistoryService struct {
	repo   domain.WalletRepository
	ledger domain.Ledger
}

func NewHistoryService(repo domain.WalletRepository, ledger domain.Ledger) *HistoryService {
	return &HistoryService{repo: repo, ledger: ledger}
}

// List 查询一个或全部链上钱包最近的付款记录，按时间倒序
func (s *HistoryService) List(ctx context.Context, q HistoryQuery) ([]domain.TransactionRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	wallet, err := s.repo.GetByWalletID(ctx, q.WalletID)
	if err != nil {
		return nil, err
	}

	currencies := wallet.LedgerCurrencies()
	if q.Currency != "" {
		c, err := domain.ParseCurrency(q.Currency)
		if err != nil {
			return nil, err
		}
		if !c.OnLedger() {
			return nil, domain.ErrUnsupportedCurrency
		}
		currencies = []domain.Currency{c}
	}

	records := make([]domain.TransactionRecord, 0)
	for _, c := range currencies {
		addr, ok := wallet.Address(c)
		if !ok {
			continue
		}
		ops, err := s.ledger.RecentPayments(ctx, addr, limit)
		if errors.Is(err, domain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			records = append(records, domain.RecordFromOperation(op, addr, c))
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
