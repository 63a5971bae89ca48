// Package domain 钱包服务的领域模型
package domain

import (
	"strings"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
)

// Currency 钱包币种标签
type Currency string

const (
	CurrencyBTC Currency = "btc"
	CurrencyETH Currency = "eth"
	CurrencySOL Currency = "sol"
	CurrencyINR Currency = "inr"
)

// NativeAssetCode 链上钱包实际持有的资产（Stellar lumens）
const NativeAssetCode = "XLM"

// FiatAssetCode 法币钱包资产代码
const FiatAssetCode = "INR"

// ParseCurrency 解析币种，大小写不敏感
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CurrencyBTC, CurrencyETH, CurrencySOL, CurrencyINR:
		return c, nil
	default:
		return "", ErrUnsupportedCurrency
	}
}

// OnLedger 是否为链上钱包
func (c Currency) OnLedger() bool {
	return c == CurrencyBTC || c == CurrencyETH || c == CurrencySOL
}

// AssetCode 钱包结算资产代码
func (c Currency) AssetCode() string {
	if c == CurrencyINR {
		return FiatAssetCode
	}
	return NativeAssetCode
}

// Label 展示用大写标签
func (c Currency) Label() string {
	return strings.ToUpper(string(c))
}

// IsValidAddress 校验 Stellar 账户地址：G 开头、56 位、strkey 校验和正确
func IsValidAddress(address string) bool {
	if len(address) != 56 || !strings.HasPrefix(address, "G") {
		return false
	}
	return strkey.IsValidEd25519PublicKey(address)
}

// AddressFromSeed 由签名私钥推导账户地址
func AddressFromSeed(seed string) (string, error) {
	kp, err := keypair.ParseFull(seed)
	if err != nil {
		return "", err
	}
	return kp.Address(), nil
}
