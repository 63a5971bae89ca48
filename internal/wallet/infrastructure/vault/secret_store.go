// Package vault 基于 Vault KV v2 的签名私钥存储
package vault

import (
	"context"
	"errors"
	"fmt"
	"path"

	vault "github.com/hashicorp/vault/api"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/config"
)

const seedField = "seed"

// SecretStore domain.SecretStore 的 Vault 实现
type SecretStore struct {
	kv     *vault.KVv2
	prefix string
}

// NewClient 根据配置创建 Vault 客户端
func NewClient(cfg config.VaultConfig) (*vault.Client, error) {
	vc := vault.DefaultConfig()
	vc.Address = cfg.Address
	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}
	return client, nil
}

// NewSecretStore 创建私钥存储
func NewSecretStore(client *vault.Client, cfg config.VaultConfig) *SecretStore {
	mount := cfg.Mount
	if mount == "" {
		mount = "secret"
	}
	return &SecretStore{kv: client.KVv2(mount), prefix: cfg.PathPrefix}
}

func (s *SecretStore) Put(ctx context.Context, key, seed string) error {
	if _, err := s.kv.Put(ctx, s.path(key), map[string]interface{}{seedField: seed}); err != nil {
		return fmt.Errorf("store secret %s: %w", key, err)
	}
	return nil
}

func (s *SecretStore) Get(ctx context.Context, key string) (string, error) {
	secret, err := s.kv.Get(ctx, s.path(key))
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", domain.ErrSecretNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	seed, ok := secret.Data[seedField].(string)
	if !ok || seed == "" {
		return "", domain.ErrSecretNotFound
	}
	return seed, nil
}

func (s *SecretStore) path(key string) string {
	return path.Join(s.prefix, key)
}
