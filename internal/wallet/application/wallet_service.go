package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

// WalletOptions 开户参数
type WalletOptions struct {
	Currencies   []domain.Currency
	InitialINR   decimal.Decimal
	FundOnCreate bool
}

// WalletService 钱包生命周期：开户、充值、访问、账户检查
type WalletService struct {
	repo      domain.WalletRepository
	ledger    domain.Ledger
	funder    domain.Funder
	keys      domain.KeyGenerator
	secrets   domain.SecretStore
	auth      *AuthService
	publisher domain.EventPublisher
	opts      WalletOptions
}

func NewWalletService(
	repo domain.WalletRepository,
	ledger domain.Ledger,
	funder domain.Funder,
	keys domain.KeyGenerator,
	secrets domain.SecretStore,
	auth *AuthService,
	publisher domain.EventPublisher,
	opts WalletOptions,
) *WalletService {
	if len(opts.Currencies) == 0 {
		opts.Currencies = []domain.Currency{domain.CurrencyBTC, domain.CurrencyETH, domain.CurrencySOL}
	}
	return &WalletService{
		repo:      repo,
		ledger:    ledger,
		funder:    funder,
		keys:      keys,
		secrets:   secrets,
		auth:      auth,
		publisher: publisher,
		opts:      opts,
	}
}

// Create 开户：每个链上币种生成一个账户，私钥写入 SecretStore，随后尽力充值
func (s *WalletService) Create(ctx context.Context, cmd CreateWalletCommand) (*CreateWalletResult, error) {
	wallet, err := domain.NewWallet(cmd.Name, cmd.Email, cmd.Password, s.opts.InitialINR)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.GetByEmail(ctx, wallet.Email)
	if err == nil {
		return nil, domain.ErrEmailTaken
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	for _, c := range s.opts.Currencies {
		kp, err := s.keys.Generate()
		if err != nil {
			return nil, err
		}
		if err := s.secrets.Put(ctx, domain.SecretKey(wallet.WalletID, c), kp.Seed); err != nil {
			return nil, fmt.Errorf("store %s key: %w", c, err)
		}
		wallet.SetAddress(c, kp.Address)
	}

	if err := s.repo.Create(ctx, wallet); err != nil {
		return nil, err
	}
	logger.Info(ctx, "wallet created", "wallet_id", wallet.WalletID, "currencies", len(s.opts.Currencies))

	result := &CreateWalletResult{
		WalletID:       wallet.WalletID,
		Addresses:      addressMap(wallet),
		FundingResults: make(map[string]FundingResult, len(s.opts.Currencies)),
		CreatedAt:      time.Now().UTC(),
	}
	for _, c := range s.opts.Currencies {
		addr, _ := wallet.Address(c)
		fr := s.fundOnCreate(ctx, addr)
		result.FundingResults[string(c)] = fr
		if !fr.Funded {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s funding: %s", c.Label(), fr.Message))
		}
	}

	publishEvent(ctx, s.publisher, domain.WalletCreatedEvent{
		BaseEvent: domain.BaseEvent{Timestamp: result.CreatedAt},
		WalletID:  wallet.WalletID,
		Email:     wallet.Email,
		Addresses: result.Addresses,
	})
	return result, nil
}

func (s *WalletService) fundOnCreate(ctx context.Context, address string) FundingResult {
	fr := FundingResult{PublicKey: address}
	if !s.opts.FundOnCreate || s.funder == nil {
		fr.Message = "Account created without funding. " + ActionFund
		return fr
	}
	if err := s.funder.Fund(ctx, address); err != nil {
		logger.Warn(ctx, "funding new wallet failed", "address", address, "error", err)
		fr.Message = "Account created but funding failed. " + ActionFund
		fr.Error = err.Error()
		return fr
	}
	fr.Funded = true
	fr.Message = "Account funded successfully"
	return fr
}

// Fund 为地址充值；已充值的账户直接返回余额
func (s *WalletService) Fund(ctx context.Context, publicKey string) (*FundAccountResult, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return nil, domain.ErrMissingPublicKey
	}
	if !domain.IsValidAddress(publicKey) {
		return nil, domain.ErrInvalidAddress
	}

	result := &FundAccountResult{PublicKey: publicKey, Network: s.ledger.Network()}

	position, err := s.ledger.LoadAccount(ctx, publicKey)
	switch {
	case err == nil && position.Funded():
		result.AlreadyFunded = true
		result.Funded = true
		result.Balance = position.Native()
		return result, nil
	case err != nil && !errors.Is(err, domain.ErrAccountNotFound):
		return nil, err
	}

	if s.funder == nil {
		return nil, domain.ErrFundingUnsupported
	}
	if err := s.funder.Fund(ctx, publicKey); err != nil {
		return nil, err
	}

	position, err = s.ledger.LoadAccount(ctx, publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFundingFailed, err)
	}
	result.Funded = true
	result.Balance = position.Native()

	publishEvent(ctx, s.publisher, domain.AccountFundedEvent{
		BaseEvent: domain.BaseEvent{Timestamp: time.Now().UTC()},
		Address:   publicKey,
	})
	return result, nil
}

// Access 校验凭证，返回各币种状态并签发会话
func (s *WalletService) Access(ctx context.Context, cmd AccessCommand) (*AccessResult, error) {
	if strings.TrimSpace(cmd.Email) == "" || cmd.Password == "" {
		return nil, domain.ErrMissingCredentials
	}
	wallet, err := s.repo.GetByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, err
	}
	if err := wallet.CheckPassword(cmd.Password); err != nil {
		return nil, err
	}

	result := &AccessResult{
		WalletID:  wallet.WalletID,
		Addresses: addressMap(wallet),
		Status:    make(map[string]WalletStatus, len(wallet.Addresses)),
		User:      UserInfo{Name: wallet.Name, Email: wallet.Email, CreatedAt: wallet.CreatedAt},
		Network:   s.ledger.Network(),
	}

	if _, ok := wallet.Address(domain.CurrencyINR); ok {
		result.Status[string(domain.CurrencyINR)] = WalletStatus{
			Funded:   true,
			Balance:  wallet.INRBalance,
			Currency: domain.FiatAssetCode,
			Network:  "fiat",
		}
	}
	for _, c := range wallet.LedgerCurrencies() {
		addr, _ := wallet.Address(c)
		st := s.ledgerStatus(ctx, c, addr)
		result.Status[string(c)] = st
		if st.NeedsFunding {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s wallet needs funding", c.Label()))
		}
	}

	if s.auth != nil {
		session, err := s.auth.Issue(ctx, wallet.WalletID)
		if err != nil {
			return nil, err
		}
		result.Session = session
	}
	return result, nil
}

func (s *WalletService) ledgerStatus(ctx context.Context, c domain.Currency, address string) WalletStatus {
	st := WalletStatus{
		Currency:  c.Label(),
		Network:   s.ledger.Network(),
		PublicKey: address,
		Balance:   decimal.Zero,
	}

	position, err := s.ledger.LoadAccount(ctx, address)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		st.NeedsFunding = true
		st.Actions = []string{ActionFund, ActionManual}
	case err != nil:
		logger.Warn(ctx, "wallet status check failed", "currency", c, "address", address, "error", err)
		st.NeedsFunding = true
		st.Error = err.Error()
		st.Actions = []string{"Unable to check wallet status", ActionRetry}
	default:
		st.Balance = position.Native()
		st.Funded = position.Funded()
		st.NeedsFunding = !st.Funded
		if st.NeedsFunding {
			st.Actions = []string{ActionFund}
		}
	}
	return st
}

// CheckAccount 查询地址在网络上的状态
func (s *WalletService) CheckAccount(ctx context.Context, publicKey string) (*AccountStatus, error) {
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return nil, domain.ErrMissingPublicKey
	}
	if !domain.IsValidAddress(publicKey) {
		return nil, domain.ErrInvalidAddress
	}

	st := &AccountStatus{PublicKey: publicKey, Network: s.ledger.Network()}
	position, err := s.ledger.LoadAccount(ctx, publicKey)
	if errors.Is(err, domain.ErrAccountNotFound) {
		st.Message = "Account does not exist on the network"
		st.Actions = []string{ActionFund, ActionManual}
		return st, nil
	}
	if err != nil {
		return nil, err
	}

	st.Exists = true
	balance := position.Native()
	st.Balance = &balance
	st.Funded = position.Funded()
	if st.Funded {
		st.Message = "Account is funded"
	} else {
		st.Message = "Account exists but has zero balance"
		st.Actions = []string{ActionFund, ActionManual}
	}
	return st, nil
}

// publishEvent 事件投递失败只记录日志，不影响业务结果
func publishEvent(ctx context.Context, publisher domain.EventPublisher, event domain.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn(ctx, "failed to publish event", "type", event.EventType(), "error", err)
	}
}

func addressMap(w *domain.Wallet) map[string]string {
	out := make(map[string]string, len(w.Addresses))
	for c, addr := range w.Addresses {
		out[string(c)] = addr
	}
	return out
}
