package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/transcrypt/internal/wallet/application"
	"github.com/wyfcoding/transcrypt/internal/wallet/domain"
	"github.com/wyfcoding/transcrypt/internal/wallet/infrastructure/messaging"
	"github.com/wyfcoding/transcrypt/internal/wallet/infrastructure/persistence/mysql"
	"github.com/wyfcoding/transcrypt/internal/wallet/infrastructure/persistence/redis"
	"github.com/wyfcoding/transcrypt/internal/wallet/infrastructure/pricing"
	"github.com/wyfcoding/transcrypt/internal/wallet/infrastructure/stellar"
	"github.com/wyfcoding/transcrypt/internal/wallet/infrastructure/vault"
	grpcserver "github.com/wyfcoding/transcrypt/internal/wallet/interfaces/grpc"
	httpserver "github.com/wyfcoding/transcrypt/internal/wallet/interfaces/http"
	"github.com/wyfcoding/transcrypt/pkg/cache"
	"github.com/wyfcoding/transcrypt/pkg/config"
	"github.com/wyfcoding/transcrypt/pkg/db"
	"github.com/wyfcoding/transcrypt/pkg/logger"
	"github.com/wyfcoding/transcrypt/pkg/metrics"
	"github.com/wyfcoding/transcrypt/pkg/middleware"
	"github.com/wyfcoding/transcrypt/pkg/mq"
	"github.com/wyfcoding/transcrypt/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

var configPath = flag.String("config", "configs/wallet/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	slog.Info("starting wallet service", "version", cfg.Version, "environment", cfg.Environment, "network", cfg.Stellar.Network)

	// 3. 初始化指标
	metricsImpl := metrics.New(cfg.ServiceName)

	// 4. 初始化基础设施
	// Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := mysql.AutoMigrate(database.DB); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Redis：会话、提交锁、报价缓存与限流
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	// Vault
	vaultClient, err := vault.NewClient(cfg.Vault)
	if err != nil {
		slog.Error("failed to init vault client", "error", err)
		os.Exit(1)
	}

	// Stellar
	horizon := stellar.NewHorizon(stellar.NewHorizonClient(cfg.Stellar), cfg.Stellar, metricsImpl)
	friendbot := stellar.NewFriendbot(cfg.Stellar, horizon, metricsImpl)

	// 报价
	fallback, err := fallbackRates(cfg.Pricing)
	if err != nil {
		slog.Error("invalid pricing config", "error", err)
		os.Exit(1)
	}
	quoter := pricing.NewCachedQuoter(pricing.NewCoinGecko(cfg.Pricing), redisCache, time.Duration(cfg.Pricing.CacheTTL)*time.Second, fallback)

	// 事件
	mqPublisher, err := mq.NewPublisher(cfg.Messaging)
	if err != nil {
		slog.Error("failed to init message publisher", "driver", cfg.Messaging.Driver, "error", err)
		os.Exit(1)
	}
	defer mqPublisher.Close()
	events := messaging.NewEventPublisher(mqPublisher, cfg.Messaging.Topic)

	// 5. 初始化仓储
	walletRepo := mysql.NewWalletRepository(database.DB)
	secrets := vault.NewSecretStore(vaultClient, cfg.Vault)
	sessions := redis.NewSessionStore(redisCache)
	submitLock := redis.NewSubmissionLock(redisCache)

	// 6. 初始化应用服务
	walletOpts, err := walletOptions(cfg.Wallet)
	if err != nil {
		slog.Error("invalid wallet config", "error", err)
		os.Exit(1)
	}
	authSvc := application.NewAuthService(walletRepo, sessions, application.AuthOptions{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    time.Duration(cfg.Auth.TokenTTL) * time.Minute,
		Issuer: cfg.Auth.Issuer,
	})
	walletSvc := application.NewWalletService(walletRepo, horizon, friendbot, stellar.KeyGenerator{}, secrets, authSvc, events, walletOpts)
	paymentSvc := application.NewPaymentService(walletRepo, horizon, secrets, submitLock, events, metricsImpl, application.PaymentOptions{
		LockTTL: time.Duration(cfg.Stellar.LockTTL) * time.Second,
		BaseFee: cfg.Stellar.BaseFee,
	})
	tradeSvc := application.NewTradeService(walletRepo, paymentSvc, quoter, events, metricsImpl, cfg.Stellar.AdminReceiver)
	historySvc := application.NewHistoryService(walletRepo, horizon)

	// 7. 初始化接口层
	// gRPC
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
	))
	healthSrv := grpcserver.NewHealthServer(map[string]grpcserver.Probe{
		"database": walletRepo.Ping,
		"redis":    redisCache.Ping,
		"ledger":   horizon.Ping,
	}, 15*time.Second)
	healthSrv.Register(grpcSrv)

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(metricsImpl),
		middleware.RateLimitMiddleware(ratelimit.NewRedisRateLimiter(redisCache.GetClient()), cfg.RateLimit),
	)
	httpserver.NewWalletHandler(httpserver.Services{
		Wallets:  walletSvc,
		Auth:     authSvc,
		Payments: paymentSvc,
		Trades:   tradeSvc,
		History:  historySvc,
		Store:    walletRepo,
		Network:  horizon.Network(),
	}).RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metricsImpl.Handler())
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}
	}

	// 8. 启动服务
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	// gRPC Start
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.GRPC.Host, cfg.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		slog.Info("gRPC server starting", "addr", addr)
		return grpcSrv.Serve(lis)
	})

	// HTTP Start
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Metrics Start
	if metricsSrv != nil {
		g.Go(func() error {
			slog.Info("metrics server starting", "addr", metricsSrv.Addr, "path", cfg.Metrics.Path)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Health prober
	g.Go(func() error {
		return healthSrv.Run(ctx)
	})

	// 9. 优雅关闭
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown failed", "error", err)
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		grpcSrv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("wallet service stopped")
}

// walletOptions 将配置转换为开户参数
// fallbackRates 静态兜底报价必须为正数
func fallbackRates(cfg config.PricingConfig) (map[string]decimal.Decimal, error) {
	rates := map[string]decimal.Decimal{}
	if cfg.FallbackXLMINR == "" {
		return rates, nil
	}
	rate, err := decimal.NewFromString(cfg.FallbackXLMINR)
	if err != nil || !rate.IsPositive() {
		return nil, fmt.Errorf("pricing.fallback_xlm_inr: invalid value %q", cfg.FallbackXLMINR)
	}
	rates[domain.NativeAssetCode+"/"+domain.FiatAssetCode] = rate
	return rates, nil
}

func walletOptions(cfg config.WalletConfig) (application.WalletOptions, error) {
	opts := application.WalletOptions{FundOnCreate: cfg.FundOnCreate}
	for _, raw := range cfg.Currencies {
		c, err := domain.ParseCurrency(raw)
		if err != nil || !c.OnLedger() {
			return opts, fmt.Errorf("wallet.currencies: %q is not a ledger currency", raw)
		}
		opts.Currencies = append(opts.Currencies, c)
	}

	opts.InitialINR = decimal.Zero
	if cfg.InitialINRBalance != "" {
		v, err := decimal.NewFromString(cfg.InitialINRBalance)
		if err != nil || v.IsNegative() {
			return opts, fmt.Errorf("wallet.initial_inr_balance: invalid value %q", cfg.InitialINRBalance)
		}
		opts.InitialINR = v
	}
	return opts, nil
}
