package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

// AuthOptions 令牌参数
type AuthOptions struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// AuthService 会话令牌签发与校验
// 令牌为 HS256 JWT，sub 为钱包 ID，jti 为会话 ID；会话同时登记在 SessionStore 中以支持注销
type AuthService struct {
	repo     domain.WalletRepository
	sessions domain.SessionStore
	opts     AuthOptions
}

func NewAuthService(repo domain.WalletRepository, sessions domain.SessionStore, opts AuthOptions) *AuthService {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &AuthService{repo: repo, sessions: sessions, opts: opts}
}

// Login 校验邮箱密码并签发令牌
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.ErrMissingCredentials
	}
	wallet, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrWalletNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := wallet.CheckPassword(password); err != nil {
		return nil, err
	}
	return s.Issue(ctx, wallet.WalletID)
}

// Issue 为钱包签发新会话
func (s *AuthService) Issue(ctx context.Context, walletID string) (*Session, error) {
	now := time.Now()
	sessionID := uuid.NewString()
	expiresAt := now.Add(s.opts.TTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   walletID,
		ID:        sessionID,
		Issuer:    s.opts.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.opts.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := s.sessions.Save(ctx, sessionID, walletID, s.opts.TTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Session{Token: signed, Type: "Bearer", ExpiresAt: expiresAt, WalletID: walletID}, nil
}

// Authenticate 校验签名、过期时间与会话是否仍有效
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if s.opts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.opts.Issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return s.opts.Secret, nil
	}, opts...)
	if err != nil {
		logger.Debug(ctx, "token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	ok, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &Principal{WalletID: claims.Subject, SessionID: claims.ID}, nil
}

// Logout 注销会话
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	principal, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return err
	}
	return s.sessions.Delete(ctx, principal.SessionID)
}
