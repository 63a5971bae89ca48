package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	domain.PasswordCost = bcrypt.MinCost
}

type fakeRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Wallet
	nextID  uint
	failGet error
	// failAdjust AdjustINR 返回的错误
	failAdjust error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*domain.Wallet{}}
}

func (r *fakeRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == w.Email {
			return domain.ErrEmailTaken
		}
	}
	r.nextID++
	w.ID = r.nextID
	w.CreatedAt = time.Now()
	r.byID[w.WalletID] = w
	return nil
}

func (r *fakeRepo) GetByEmail(ctx context.Context, email string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return nil, r.failGet
	}
	for _, w := range r.byID {
		if w.Email == domain.NormalizeEmail(email) {
			return w, nil
		}
	}
	return nil, domain.ErrWalletNotFound
}

func (r *fakeRepo) GetByWalletID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byID[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return w, nil
}

func (r *fakeRepo) AdjustINR(ctx context.Context, walletID string, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byID[walletID]
	if !ok {
		return decimal.Zero, domain.ErrWalletNotFound
	}
	if r.failAdjust != nil {
		return decimal.Zero, r.failAdjust
	}
	if err := w.AdjustINR(delta); err != nil {
		return decimal.Zero, err
	}
	return w.INRBalance, nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }

// fakeLedger 内存账本，成功提交时按指令移动余额
type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[string]*domain.AccountPosition
	payments  map[string][]domain.LedgerOperation
	loadErr   map[string]error
	submitErr error
	// submitFailed 返回 Successful=false
	submitFailed bool
	submitted    []domain.PaymentInstruction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[string]*domain.AccountPosition{},
		payments: map[string][]domain.LedgerOperation{},
		loadErr:  map[string]error{},
	}
}

func (l *fakeLedger) fund(address, amount string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = &domain.AccountPosition{
		Address:  address,
		Sequence: 1,
		Balances: []domain.Balance{{AssetCode: domain.NativeAssetCode, Amount: decimal.RequireFromString(amount)}},
	}
}

func (l *fakeLedger) Network() string { return "testnet" }

func (l *fakeLedger) LoadAccount(ctx context.Context, address string) (*domain.AccountPosition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadErr[address]; err != nil {
		return nil, err
	}
	p, ok := l.accounts[address]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *p
	cp.Balances = append([]domain.Balance(nil), p.Balances...)
	return &cp, nil
}

func (l *fakeLedger) Submit(ctx context.Context, position *domain.AccountPosition, instr *domain.PaymentInstruction, seed string) (*domain.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitted = append(l.submitted, *instr)
	hash := fmt.Sprintf("%064d", len(l.submitted))

	if addr, err := domain.AddressFromSeed(seed); err != nil || addr != instr.Source {
		return nil, fmt.Errorf("bad seed for %s", instr.Source)
	}
	if l.submitErr != nil {
		return &domain.Submission{Hash: hash}, l.submitErr
	}
	if l.submitFailed {
		return &domain.Submission{Hash: hash, Ledger: 9}, nil
	}

	src := l.accounts[instr.Source]
	src.Sequence++
	src.Balances[0].Amount = src.Balances[0].Amount.Sub(instr.Amount).Sub(decimal.New(100, -7))
	if dst, ok := l.accounts[instr.Destination]; ok {
		dst.Balances[0].Amount = dst.Balances[0].Amount.Add(instr.Amount)
	} else {
		l.accounts[instr.Destination] = &domain.AccountPosition{
			Address:  instr.Destination,
			Balances: []domain.Balance{{AssetCode: domain.NativeAssetCode, Amount: instr.Amount}},
		}
	}
	return &domain.Submission{Hash: hash, Ledger: 1234, Successful: true}, nil
}

func (l *fakeLedger) RecentPayments(ctx context.Context, address string, limit int) ([]domain.LedgerOperation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.loadErr[address]; err != nil {
		return nil, err
	}
	ops, ok := l.payments[address]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

type fakeFunder struct {
	ledger *fakeLedger
	err    error
	calls  []string
}

func (f *fakeFunder) Fund(ctx context.Context, address string) error {
	f.calls = append(f.calls, address)
	if f.err != nil {
		return f.err
	}
	f.ledger.fund(address, "10000")
	return nil
}

type randomKeys struct{}

func (randomKeys) Generate() (domain.KeyPair, error) {
	kp := keypair.MustRandom()
	return domain.KeyPair{Address: kp.Address(), Seed: kp.Seed()}, nil
}

type fakeSecrets struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{data: map[string]string{}}
}

func (s *fakeSecrets) Put(ctx context.Context, key, seed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = seed
	return nil
}

func (s *fakeSecrets) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seed, ok := s.data[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return seed, nil
}

type fakeSessions struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{data: map[string]string{}}
}

func (s *fakeSessions) Save(ctx context.Context, sessionID, walletID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = walletID
	return nil
}

func (s *fakeSessions) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[sessionID]
	return ok, nil
}

func (s *fakeSessions) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

type fakeLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLock() *fakeLock {
	return &fakeLock{held: map[string]bool{}}
}

func (l *fakeLock) Acquire(ctx context.Context, address string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[address] {
		return nil, domain.ErrSubmissionInProgress
	}
	l.held[address] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, address)
	}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixedQuoter struct {
	rate decimal.Decimal
	err  error
}

func (q fixedQuoter) Quote(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	return q.rate, q.err
}

// fixture 组装好的服务与依赖
type fixture struct {
	repo      *fakeRepo
	ledger    *fakeLedger
	funder    *fakeFunder
	secrets   *fakeSecrets
	sessions  *fakeSessions
	lock      *fakeLock
	publisher *fakePublisher

	auth     *AuthService
	wallets  *WalletService
	payments *PaymentService
	history  *HistoryService
}

func newFixture() *fixture {
	f := &fixture{
		repo:      newFakeRepo(),
		ledger:    newFakeLedger(),
		secrets:   newFakeSecrets(),
		sessions:  newFakeSessions(),
		lock:      newFakeLock(),
		publisher: &fakePublisher{},
	}
	f.funder = &fakeFunder{ledger: f.ledger}
	f.auth = NewAuthService(f.repo, f.sessions, AuthOptions{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    time.Hour,
		Issuer: "transcrypt",
	})
	f.wallets = NewWalletService(f.repo, f.ledger, f.funder, randomKeys{}, f.secrets, f.auth, f.publisher, WalletOptions{
		InitialINR:   decimal.NewFromInt(10000),
		FundOnCreate: true,
	})
	f.payments = NewPaymentService(f.repo, f.ledger, f.secrets, f.lock, f.publisher, nil, PaymentOptions{BaseFee: 100})
	f.history = NewHistoryService(f.repo, f.ledger)
	return f
}

// createWallet 开户并返回钱包
func (f *fixture) createWallet(email string) *domain.Wallet {
	res, err := f.wallets.Create(context.Background(), CreateWalletCommand{Name: "User", Email: email, Password: "pw"})
	if err != nil {
		panic(err)
	}
	w, _ := f.repo.GetByWalletID(context.Background(), res.WalletID)
	return w
}
