package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAddress       = errors.New("invalid stellar public key")
	ErrMissingPublicKey     = errors.New("public key is required")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidMemo          = errors.New("memo exceeds 28 bytes")
	ErrSelfPayment          = errors.New("source and destination are the same account")
	ErrUnsupportedCurrency  = errors.New("unsupported currency")
	ErrMissingCredentials   = errors.New("email and password are required")
	ErrMissingFields        = errors.New("name, email, and password are required")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordTooLong      = errors.New("password must be at most 72 bytes")
	ErrEmailTaken           = errors.New("email already registered")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrAccountNotFound      = errors.New("account does not exist on the network")
	ErrAccountNotFunded     = errors.New("account is not funded")
	ErrInsufficientFunds    = errors.New("insufficient balance")
	ErrInsufficientINR      = errors.New("insufficient INR balance")
	ErrBelowReserve         = errors.New("amount below minimum balance required to create destination account")
	ErrSubmissionInProgress = errors.New("another payment from this account is in progress")
	ErrSubmissionTimeout    = errors.New("transaction submitted but outcome unknown")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrFundingFailed        = errors.New("failed to fund account")
	ErrFundingUnsupported   = errors.New("friendbot funding is only available on testnet")
	ErrSecretNotFound       = errors.New("signing key not found")
	ErrUnauthorized         = errors.New("invalid or expired token")
	ErrInvalidTransition    = errors.New("invalid payment status transition")
	ErrUnsupportedTrade     = errors.New("trades must convert between INR and a ledger wallet")
	ErrTreasuryUnavailable  = errors.New("treasury account is not configured")
	ErrLedgerUnavailable    = errors.New("ledger network unavailable")
)

// SubmissionError Horizon 拒绝交易时的结果码
type SubmissionError struct {
	TransactionCode string
	OperationCodes  []string
}

func (e *SubmissionError) Error() string {
	if len(e.OperationCodes) == 0 {
		return fmt.Sprintf("transaction rejected: %s", e.TransactionCode)
	}
	return fmt.Sprintf("transaction rejected: %s [%s]", e.TransactionCode, strings.Join(e.OperationCodes, ","))
}

// Codes 全部结果码
func (e *SubmissionError) Codes() []string {
	codes := make([]string, 0, len(e.OperationCodes)+1)
	if e.TransactionCode != "" {
		codes = append(codes, e.TransactionCode)
	}
	return append(codes, e.OperationCodes...)
}

// Unwrap 将已知结果码映射为领域错误，便于 errors.Is 判断
func (e *SubmissionError) Unwrap() error {
	for _, code := range e.Codes() {
		switch code {
		case "tx_insufficient_balance", "op_underfunded":
			return ErrInsufficientFunds
		case "op_low_reserve":
			return ErrBelowReserve
		case "op_no_destination":
			return ErrAccountNotFound
		}
	}
	return nil
}
