package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment() *Payment {
	return NewPayment("w-1", CurrencyBTC, &PaymentInstruction{
		Source:      "GSRC",
		Destination: "GDST",
		Amount:      decimal.NewFromInt(10),
	})
}

func TestPayment_Transitions(t *testing.T) {
	p := newTestPayment()
	assert.Equal(t, PaymentPending, p.Status)
	assert.NotEmpty(t, p.ID)

	require.NoError(t, p.Complete("abc", 42))
	assert.Equal(t, PaymentCompleted, p.Status)
	assert.Equal(t, int32(42), p.Ledger)
	assert.False(t, p.SettledAt.IsZero())

	assert.ErrorIs(t, p.Fail("late", nil), ErrInvalidTransition)
	assert.ErrorIs(t, p.MarkUnknown("other"), ErrInvalidTransition)
	assert.Equal(t, "abc", p.TxHash)
}

func TestPayment_FailAndUnknown(t *testing.T) {
	p := newTestPayment()
	require.NoError(t, p.MarkUnknown("hash-1"))
	assert.Equal(t, PaymentPending, p.Status)
	assert.Equal(t, "hash-1", p.TxHash)

	require.NoError(t, p.Fail("rejected", []string{"tx_failed", "op_underfunded"}))
	assert.Equal(t, PaymentFailed, p.Status)
	assert.ErrorIs(t, p.Complete("x", 1), ErrInvalidTransition)
}

func TestSubmissionError(t *testing.T) {
	tests := []struct {
		name    string
		err     *SubmissionError
		wantMsg string
		want    error
	}{
		{"underfunded", &SubmissionError{TransactionCode: "tx_failed", OperationCodes: []string{"op_underfunded"}}, "transaction rejected: tx_failed [op_underfunded]", ErrInsufficientFunds},
		{"low reserve", &SubmissionError{TransactionCode: "tx_failed", OperationCodes: []string{"op_low_reserve"}}, "transaction rejected: tx_failed [op_low_reserve]", ErrBelowReserve},
		{"no destination", &SubmissionError{TransactionCode: "tx_failed", OperationCodes: []string{"op_no_destination"}}, "transaction rejected: tx_failed [op_no_destination]", ErrAccountNotFound},
		{"bad seq", &SubmissionError{TransactionCode: "tx_bad_seq"}, "transaction rejected: tx_bad_seq", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
			if tt.want == nil {
				assert.NoError(t, errors.Unwrap(tt.err))
				return
			}
			assert.ErrorIs(t, tt.err, tt.want)
		})
	}
}

func TestNewPaymentSettledEvent(t *testing.T) {
	p := newTestPayment()
	require.NoError(t, p.Fail("rejected", []string{"tx_failed"}))

	ev := NewPaymentSettledEvent(p)
	assert.Equal(t, "payment.failed", ev.EventType())
	assert.Equal(t, "GSRC", ev.EventKey())
	assert.Equal(t, "10", ev.Amount)
	assert.Equal(t, []string{"tx_failed"}, ev.ResultCodes)
}
