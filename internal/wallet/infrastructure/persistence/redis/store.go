// Package redis 会话与提交锁的 Redis 实现
package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

// keyValue pkg/cache.RedisCache 的子集
type keyValue interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

type sessionStore struct {
	kv     keyValue
	prefix string
}

// NewSessionStore 创建会话存储
func NewSessionStore(kv keyValue) domain.SessionStore {
	return &sessionStore{kv: kv, prefix: "wallet:session:"}
}

func (s *sessionStore) Save(ctx context.Context, sessionID, walletID string, ttl time.Duration) error {
	return s.kv.SetJSON(ctx, s.prefix+sessionID, walletID, ttl)
}

func (s *sessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	return s.kv.Exists(ctx, s.prefix+sessionID)
}

func (s *sessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, s.prefix+sessionID)
}

type submissionLock struct {
	kv     keyValue
	prefix string
}

// NewSubmissionLock 创建按源账户加锁的提交锁
func NewSubmissionLock(kv keyValue) domain.SubmissionLock {
	return &submissionLock{kv: kv, prefix: "wallet:submit:"}
}

func (l *submissionLock) Acquire(ctx context.Context, address string, ttl time.Duration) (func(), error) {
	key := l.prefix + address
	token := uuid.NewString()

	ok, err := l.kv.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSubmissionInProgress
	}

	return func() {
		// 请求上下文可能已取消
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if _, err := l.kv.CompareAndDelete(releaseCtx, key, token); err != nil {
			logger.Warn(ctx, "failed to release submission lock", "address", address, "error", err)
		}
	}, nil
}
