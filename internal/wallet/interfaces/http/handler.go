package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/application"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/pkg/logger"
)

// WalletUseCases 钱包生命周期
type WalletUseCases interface {
	Create(ctx context.Context, cmd application.CreateWalletCommand) (*application.CreateWalletResult, error)
	Fund(ctx context.Context, publicKey string) (*application.FundAccountResult, error)
	Access(ctx context.Context, cmd application.AccessCommand) (*application.AccessResult, error)
	CheckAccount(ctx context.Context, publicKey string) (*application.AccountStatus, error)
}

// AuthUseCases 会话管理
type AuthUseCases interface {
	Login(ctx context.Context, email, password string) (*application.Session, error)
	Authenticate(ctx context.Context, token string) (*application.Principal, error)
	Logout(ctx context.Context, token string) error
}

type PaymentUseCases interface {
	Send(ctx context.Context, cmd application.SendPaymentCommand) (*application.PaymentResult, error)
}

type TradeUseCases interface {
	Execute(ctx context.Context, cmd application.TradeCommand) (*domain.TradeResult, error)
}

type HistoryUseCases interface {
	List(ctx context.Context, q application.HistoryQuery) ([]domain.TransactionRecord, error)
}

// Pinger 存储连通性
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services 处理器依赖
type Services struct {
	Wallets  WalletUseCases
	Auth     AuthUseCases
	Payments PaymentUseCases
	Trades   TradeUseCases
	History  HistoryUseCases
	Store    Pinger
	Network  string
}

// WalletHandler HTTP 处理器
type WalletHandler struct {
	svc Services
}

// NewWalletHandler 创建 HTTP 处理器
func NewWalletHandler(svc Services) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *WalletHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.Index)

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		wallet := api.Group("/wallet")
		wallet.POST("/create", h.CreateWallet)
		wallet.POST("/fund-account", h.FundAccount)
		wallet.POST("/access", h.AccessWallet)
		wallet.POST("/check-account", h.CheckAccount)

		api.POST("/auth/login", h.Login)

		secured := api.Group("", h.RequireAuth())
		secured.POST("/auth/logout", h.Logout)
		secured.POST("/payments", h.SendPayment)
		secured.POST("/trades", h.ExecuteTrade)
		secured.GET("/transactions", h.ListTransactions)
	}
}

// Index 欢迎信息
func (h *WalletHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Stellar Wallet API!"})
}

// Health 健康检查，数据库不可达时仍返回 200，由 database_connected 标识
func (h *WalletHandler) Health(c *gin.Context) {
	connected := false
	if h.svc.Store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.svc.Store.Ping(ctx); err != nil {
			logger.Warn(ctx, "health check: database unreachable", "error", err)
		} else {
			connected = true
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"network":            h.svc.Network,
		"database_connected": connected,
		"timestamp":          time.Now().UTC(),
	})
}

// CreateWalletRequest 开户请求
type CreateWalletRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateWallet 开户
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	var req CreateWalletRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Wallets.Create(c.Request.Context(), application.CreateWalletCommand{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}

	message := "Wallet created successfully"
	if len(res.Warnings) > 0 {
		message = "Wallet created with some funding issues. Check the funding_results field."
	}
	h.writeSuccess(c, http.StatusCreated, message, res)
}

// PublicKeyRequest 单个地址的请求体
type PublicKeyRequest struct {
	PublicKey string `json:"public_key"`
}

// FundAccount friendbot 充值
func (h *WalletHandler) FundAccount(c *gin.Context) {
	var req PublicKeyRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Wallets.Fund(c.Request.Context(), req.PublicKey)
	if err != nil {
		writeError(c, err, gin.H{"public_key": req.PublicKey, "network": h.svc.Network})
		return
	}

	message := "Account funded successfully"
	if res.AlreadyFunded {
		message = "Account is already funded"
	}
	h.writeSuccess(c, http.StatusOK, message, res)
}

// CredentialsRequest 邮箱密码
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccessWallet 登录查看钱包
func (h *WalletHandler) AccessWallet(c *gin.Context) {
	var req CredentialsRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Wallets.Access(c.Request.Context(), application.AccessCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(c, err, nil)
		return
	}
	h.writeSuccess(c, http.StatusOK, "Wallet accessed successfully", res)
}

// CheckAccount 查询地址状态
func (h *WalletHandler) CheckAccount(c *gin.Context) {
	var req PublicKeyRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.svc.Wallets.CheckAccount(c.Request.Context(), req.PublicKey)
	if err != nil {
		writeError(c, err, gin.H{"public_key": req.PublicKey})
		return
	}
	h.writeSuccess(c, http.StatusOK, res.Message, res)
}

// Login 签发会话令牌
func (h *WalletHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if !bind(c, &req) {
		return
	}

	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	h.writeSuccess(c, http.StatusOK, "Login successful", session)
}

// Logout 注销当前会话
func (h *WalletHandler) Logout(c *gin.Context) {
	token, _ := bearerToken(c.GetHeader("Authorization"))
	if err := h.svc.Auth.Logout(c.Request.Context(), token); err != nil {
		writeError(c, err, nil)
		return
	}
	h.writeSuccess(c, http.StatusOK, "Logged out", nil)
}

// SendPaymentRequest 付款请求
type SendPaymentRequest struct {
	Currency    string          `json:"currency"`
	Destination string          `json:"destination"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo"`
}

// SendPayment 从当前钱包付款
func (h *WalletHandler) SendPayment(c *gin.Context) {
	var req SendPaymentRequest
	if !bind(c, &req) {
		return
	}
	principal := CurrentPrincipal(c)

	res, err := h.svc.Payments.Send(c.Request.Context(), application.SendPaymentCommand{
		WalletID:    principal.WalletID,
		Currency:    req.Currency,
		Destination: req.Destination,
		Amount:      req.Amount,
		Memo:        req.Memo,
	})
	if err != nil {
		var extra gin.H
		if res != nil {
			extra = gin.H{"data": res}
		}
		writeError(c, err, extra)
		return
	}

	status := http.StatusOK
	if res.Status == domain.PaymentPending {
		status = http.StatusAccepted
	}
	h.writeSuccess(c, status, res.Message, res)
}

// TradeRequest 兑换请求
type TradeRequest struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

// TradeResponse 兑换结果
type TradeResponse struct {
	ID        string               `json:"id"`
	Side      string               `json:"side"`
	FromAsset string               `json:"from_asset"`
	ToAsset   string               `json:"to_asset"`
	Amount    decimal.Decimal      `json:"amount"`
	Received  decimal.Decimal      `json:"received"`
	Rate      decimal.Decimal      `json:"rate"`
	Timestamp time.Time            `json:"timestamp"`
	TxHash    string               `json:"transaction_hash,omitempty"`
	Status    domain.PaymentStatus `json:"status"`
}

func toTradeResponse(t *domain.TradeResult) *TradeResponse {
	return &TradeResponse{
		ID:        t.ID,
		Side:      string(t.Side),
		FromAsset: t.FromAsset,
		ToAsset:   t.ToAsset,
		Amount:    t.Amount,
		Received:  t.Received,
		Rate:      t.Rate,
		Timestamp: t.Timestamp,
		TxHash:    t.TxHash,
		Status:    t.Status,
	}
}

// ExecuteTrade 兑换
func (h *WalletHandler) ExecuteTrade(c *gin.Context) {
	var req TradeRequest
	if !bind(c, &req) {
		return
	}
	principal := CurrentPrincipal(c)

	trade, err := h.svc.Trades.Execute(c.Request.Context(), application.TradeCommand{
		WalletID: principal.WalletID,
		From:     req.From,
		To:       req.To,
		Amount:   req.Amount,
	})
	if err != nil {
		var extra gin.H
		if trade != nil {
			extra = gin.H{"data": toTradeResponse(trade)}
		}
		writeError(c, err, extra)
		return
	}

	status := http.StatusOK
	message := "Trade completed"
	if trade.Status == domain.PaymentPending {
		status = http.StatusAccepted
		message = "Trade submitted but not yet confirmed"
	}
	h.writeSuccess(c, status, message, toTradeResponse(trade))
}

// TransactionResponse 交易记录
type TransactionResponse struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	Wallet string          `json:"wallet"`
	Date   time.Time       `json:"date"`
	Status string          `json:"status"`
	TxHash string          `json:"transaction_hash,omitempty"`
}

// ListTransactions 最近交易记录，支持 currency 与 limit 查询参数
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorBody("limit must be a non-negative integer", codeInvalidRequest))
			return
		}
		limit = n
	}
	principal := CurrentPrincipal(c)

	records, err := h.svc.History.List(c.Request.Context(), application.HistoryQuery{
		WalletID: principal.WalletID,
		Currency: c.Query("currency"),
		Limit:    limit,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}

	out := make([]TransactionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, TransactionResponse{
			ID:     r.ID,
			Type:   string(r.Type),
			Name:   r.Name,
			Amount: r.Amount,
			Wallet: r.Wallet,
			Date:   r.Date,
			Status: string(r.Status),
			TxHash: r.TxHash,
		})
	}
	h.writeSuccess(c, http.StatusOK, "", out)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.Debug(c.Request.Context(), "invalid request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, errorBody("invalid request body", codeInvalidRequest))
		return false
	}
	return true
}

func (h *WalletHandler) writeSuccess(c *gin.Context, status int, message string, data any) {
	body := gin.H{
		"success":   true,
		"network":   h.svc.Network,
		"timestamp": time.Now().UTC(),
	}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}
