package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
service_name = "wallet"
environment = "dev"

[http]
port = 5001

[database]
dsn = "root:root@tcp(localhost:3306)/transcrypt?parseTime=true"

[stellar]
network = "testnet"
admin_receiver = "GABC"

[auth]
jwt_secret = "0123456789abcdef0123"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, "wallet", cfg.ServiceName)
	assert.Equal(t, 5001, cfg.HTTP.Port)
	assert.Equal(t, 50051, cfg.GRPC.Port)
	assert.Equal(t, "testnet", cfg.Stellar.Network)
	assert.Equal(t, int64(100), cfg.Stellar.BaseFee)
	assert.Equal(t, 3, cfg.Stellar.FundMaxAttempts)
	assert.Equal(t, []string{"btc", "eth", "sol"}, cfg.Wallet.Currencies)
	assert.Equal(t, "10000", cfg.Wallet.InitialINRBalance)
	assert.Equal(t, "none", cfg.Messaging.Driver)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "7000")
	t.Setenv("APP_STELLAR_NETWORK", "public")

	cfg, err := Load(writeConfig(t, sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, "public", cfg.Stellar.Network)
	assert.Equal(t, "https://horizon.stellar.org", cfg.Stellar.ResolvedHorizonURL())
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("APP_DATABASE_DSN", "dsn")
	t.Setenv("APP_AUTH_JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "dsn", cfg.Database.DSN)
	assert.Equal(t, 5000, cfg.HTTP.Port)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short jwt secret", `
[database]
dsn = "x"
[auth]
jwt_secret = "short"
`},
		{"unknown network", strings.Replace(sampleTOML, `network = "testnet"`, `network = "futurenet"`, 1)},
		{"kafka without brokers", sampleTOML + `
[messaging]
driver = "kafka"
`},
		{"bad port", `
[http]
port = 70000
[database]
dsn = "x"
[auth]
jwt_secret = "0123456789abcdef0123"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestResolvedHorizonURL(t *testing.T) {
	assert.Equal(t, "https://horizon-testnet.stellar.org", StellarConfig{Network: "testnet"}.ResolvedHorizonURL())
	assert.Equal(t, "http://localhost:8000", StellarConfig{Network: "public", HorizonURL: "http://localhost:8000"}.ResolvedHorizonURL())
}
