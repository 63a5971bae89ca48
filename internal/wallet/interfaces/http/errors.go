// Package http 钱包服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeInternal       = "INTERNAL_ERROR"
)

// errorMapping 按顺序匹配，越具体的错误越靠前
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrMissingPublicKey, http.StatusBadRequest, "MISSING_PUBLIC_KEY"},
	{domain.ErrInvalidAddress, http.StatusBadRequest, "INVALID_PUBLIC_KEY"},
	{domain.ErrMissingFields, http.StatusBadRequest, "MISSING_FIELDS"},
	{domain.ErrMissingCredentials, http.StatusBadRequest, "MISSING_CREDENTIALS"},
	{domain.ErrPasswordTooLong, http.StatusBadRequest, "PASSWORD_TOO_LONG"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{domain.ErrInvalidMemo, http.StatusBadRequest, "INVALID_MEMO"},
	{domain.ErrSelfPayment, http.StatusBadRequest, "SELF_PAYMENT"},
	{domain.ErrUnsupportedCurrency, http.StatusBadRequest, "UNSUPPORTED_CURRENCY"},
	{domain.ErrUnsupportedTrade, http.StatusBadRequest, "UNSUPPORTED_TRADE"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND"},
	{domain.ErrEmailTaken, http.StatusConflict, "EMAIL_TAKEN"},
	{domain.ErrSubmissionInProgress, http.StatusConflict, "SUBMISSION_IN_PROGRESS"},
	{domain.ErrAccountNotFunded, http.StatusBadRequest, "ACCOUNT_NOT_FUNDED"},
	{domain.ErrInsufficientINR, http.StatusBadRequest, "INSUFFICIENT_INR"},
	{domain.ErrInsufficientFunds, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
	{domain.ErrBelowReserve, http.StatusBadRequest, "BELOW_RESERVE"},
	{domain.ErrFundingUnsupported, http.StatusBadRequest, "FUNDING_UNSUPPORTED"},
	{domain.ErrFundingFailed, http.StatusInternalServerError, "FUNDING_FAILED"},
	// 网络故障也包裹在 ErrPaymentFailed 中，对外统一为付款失败
	{domain.ErrPaymentFailed, http.StatusBadGateway, "PAYMENT_FAILED"},
	{domain.ErrTreasuryUnavailable, http.StatusServiceUnavailable, "TREASURY_UNAVAILABLE"},
	{domain.ErrLedgerUnavailable, http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE"},
}

func errorBody(message, code string) gin.H {
	return gin.H{"success": false, "error": message, "code": code}
}

// writeError 输出错误响应，extra 中的字段合并进响应体
// 未识别的错误只记录日志，对外返回通用信息
func writeError(c *gin.Context, err error, extra gin.H) {
	status, code, message := http.StatusInternalServerError, codeInternal, "internal server error"
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			status, code, message = m.status, m.code, m.err.Error()
			break
		}
	}

	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "path", c.FullPath(), "code", code, "error", err)
	} else {
		logger.Info(ctx, "request rejected", "path", c.FullPath(), "code", code, "error", err)
	}

	body := errorBody(message, code)
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		body["result_codes"] = subErr.Codes()
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
