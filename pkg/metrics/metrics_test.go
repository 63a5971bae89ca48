package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New("wallet")

	m.RecordPayment("completed", 1.2)
	m.RecordPayment("completed", 0.4)
	m.RecordPayment("failed", 0.1)
	m.RecordFunding("success")
	m.RecordTrade("sell", "completed")
	m.ObserveLedgerCall("account_detail", 0.2, nil)
	m.ObserveLedgerCall("submit", 0.2, errors.New("boom"))
	m.RecordHTTPRequest("POST", "/api/payments", 200, 0.3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PaymentsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FundingAttempts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal.WithLabelValues("sell", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerCallErrors.WithLabelValues("submit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LedgerCallErrors.WithLabelValues("account_detail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/payments", "200")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New("wallet")
	m.RecordPayment("pending", 0.5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `transcrypt_wallet_payments_total{status="pending"} 1`)
}

func TestNewTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		New("wallet")
		New("wallet")
	})
}
