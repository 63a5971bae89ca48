package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/config"
)

func TestWalletOptions(t *testing.T) {
	opts, err := walletOptions(config.WalletConfig{
		Currencies:        []string{"BTC", "sol"},
		InitialINRBalance: "2500.50",
		FundOnCreate:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Currency{domain.CurrencyBTC, domain.CurrencySOL}, opts.Currencies)
	assert.Equal(t, "2500.5", opts.InitialINR.String())
	assert.True(t, opts.FundOnCreate)

	_, err = walletOptions(config.WalletConfig{Currencies: []string{"inr"}})
	assert.Error(t, err)

	_, err = walletOptions(config.WalletConfig{Currencies: []string{"btc"}, InitialINRBalance: "-1"})
	assert.Error(t, err)
}

func TestFallbackRates(t *testing.T) {
	rates, err := fallbackRates(config.PricingConfig{FallbackXLMINR: "9.75"})
	require.NoError(t, err)
	assert.Equal(t, "9.75", rates["XLM/INR"].String())

	rates, err = fallbackRates(config.PricingConfig{})
	require.NoError(t, err)
	assert.Empty(t, rates)

	for _, v := range []string{"0", "-2", "abc"} {
		_, err = fallbackRates(config.PricingConfig{FallbackXLMINR: v})
		assert.Error(t, err, v)
	}
}
