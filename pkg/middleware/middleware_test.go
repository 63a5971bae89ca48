package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/wyfcoding/transcrypt/pkg/config"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
	"github.com/wyfcoding/transcrypt/pkg/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit ratelimit.Limit) (*ratelimit.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ratelimit.Result{Allowed: s.allowed, Remaining: 0, RetryAfter: 2 * time.Second}, nil
}

func TestGinLoggingMiddleware_InjectsTrace(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())

	var traceID, requestID string
	r.GET("/ping", func(c *gin.Context) {
		traceID = logger.TraceID(c.Request.Context())
		requestID = logger.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceIDHeader, "trace-abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "trace-abc", traceID)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, requestID, rec.Header().Get("X-Request-ID"))
}

func TestGinRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware(), GinRecoveryMiddleware())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestGinCORSMiddleware_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(GinCORSMiddleware())
	r.POST("/api/payments", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/payments", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGinMetricsMiddleware(t *testing.T) {
	m := metrics.New("wallet")
	r := gin.New()
	r.Use(GinMetricsMiddleware(m))
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestRateLimitMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RateLimitConfig
		limiter  *stubLimiter
		wantCode int
		wantCall bool
	}{
		{"disabled", config.RateLimitConfig{Enabled: false, QPS: 1, Burst: 1}, &stubLimiter{allowed: false}, http.StatusOK, false},
		{"allowed", config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}, &stubLimiter{allowed: true}, http.StatusOK, true},
		{"rejected", config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}, &stubLimiter{allowed: false}, http.StatusTooManyRequests, true},
		{"backend down fails open", config.RateLimitConfig{Enabled: true, QPS: 1, Burst: 1}, &stubLimiter{err: errors.New("redis down")}, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tt.limiter, tt.cfg))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCall, tt.limiter.calls > 0)
			if tt.wantCode == http.StatusTooManyRequests {
				assert.Equal(t, "3", rec.Header().Get("Retry-After"))
			}
		})
	}
}
