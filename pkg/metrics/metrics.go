// Package metrics 提供 Prometheus 指标集合，覆盖 HTTP、账本调用、付款、充值与兑换
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "transcrypt"

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// Horizon 调用耗时
	LedgerCallDuration *prometheus.HistogramVec
	// Horizon 调用失败次数
	LedgerCallErrors *prometheus.CounterVec

	// 付款结果计数
	PaymentsTotal *prometheus.CounterVec
	// 付款处理耗时
	PaymentDuration prometheus.Histogram
	// Friendbot 充值尝试
	FundingAttempts *prometheus.CounterVec
	// 兑换计数
	TradesTotal *prometheus.CounterVec
}

// New 创建并注册指标实例，每个实例使用独立的 registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		LedgerCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "ledger_call_duration_seconds",
			Help:      "Horizon call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		LedgerCallErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "ledger_call_errors_total",
			Help:      "Failed Horizon calls",
		}, []string{"operation"}),

		PaymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "payments_total",
			Help:      "Payments by final status",
		}, []string{"status"}),
		PaymentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "payment_duration_seconds",
			Help:      "Time spent processing payments",
			Buckets:   prometheus.LinearBuckets(0.5, 0.5, 12),
		}),
		FundingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "funding_attempts_total",
			Help:      "Friendbot funding attempts by result",
		}, []string{"result"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "trades_total",
			Help:      "Trades by side and status",
		}, []string{"side", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LedgerCallDuration,
		m.LedgerCallErrors,
		m.PaymentsTotal,
		m.PaymentDuration,
		m.FundingAttempts,
		m.TradesTotal,
	)
	return m
}

// Registry 返回底层 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 Prometheus 抓取端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// ObserveLedgerCall 记录一次 Horizon 调用
func (m *Metrics) ObserveLedgerCall(operation string, seconds float64, err error) {
	m.LedgerCallDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.LedgerCallErrors.WithLabelValues(operation).Inc()
	}
}

// RecordPayment 记录付款结果
func (m *Metrics) RecordPayment(status string, seconds float64) {
	m.PaymentsTotal.WithLabelValues(status).Inc()
	m.PaymentDuration.Observe(seconds)
}

// RecordFunding 记录充值尝试
func (m *Metrics) RecordFunding(result string) {
	m.FundingAttempts.WithLabelValues(result).Inc()
}

// RecordTrade 记录兑换
func (m *Metrics) RecordTrade(side, status string) {
	m.TradesTotal.WithLabelValues(side, status).Inc()
}
