package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"leaguetrades/internal/auth"
	"leaguetrades/internal/cache"
	"leaguetrades/internal/config"
	cronrunner "leaguetrades/internal/cron"
	"leaguetrades/internal/db"
	"leaguetrades/internal/handler"
	"leaguetrades/internal/logger"
	gormrepository "leaguetrades/internal/repository/gorm"
	"leaguetrades/internal/service"
	"leaguetrades/internal/stream"

	_ "leaguetrades/docs"
)

func main() {
	cfgPath := os.Getenv("LT_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("LT_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
	}

	store := gormrepository.New(dbConn.Gorm)
	countCache := cache.New(cfg.Cache, cfg.Redis, logger)
	if rs, ok := countCache.(*cache.RedisStore); ok {
		defer rs.Close()
	}

	var (
		hub    *stream.Hub
		events service.Publisher
	)
	if cfg.Stream.Enabled {
		hub = stream.NewHub(cfg.Stream.BufferSize, logger)
		events = hub
	}

	limits := &service.LimitEnforcer{
		Repo:         store,
		Cache:        countCache,
		CacheTTL:     cfg.Cache.TTL,
		MaxPerWindow: cfg.Trades.MaxPerWindow,
		Logger:       logger,
	}
	engine := &service.ExecutionEngine{
		Repo:         store,
		Limits:       limits,
		EnforceLimit: cfg.Trades.EnforceLimitOnExecute,
		Logger:       logger,
		Events:       events,
	}
	sweeper := &service.DeadlineSweeper{Repo: store, Logger: logger, Events: events}
	trades := &handler.TradeHandler{
		Queries:   &service.TradeQueryService{Repo: store},
		Proposals: &service.ProposalBuilder{Repo: store, Logger: logger, Events: events},
		Responses: &service.ResponseCoordinator{
			Repo:        store,
			Limits:      limits,
			Engine:      engine,
			AutoExecute: cfg.Trades.AutoExecute,
			Logger:      logger,
			Events:      events,
		},
		Engine: engine,
		Reversal: &service.ReversalEngine{
			Repo:   store,
			Limits: limits,
			Strict: cfg.Trades.StrictRevert,
			Logger: logger,
			Events: events,
		},
		Canceller:          &service.TradeCanceller{Repo: store, Logger: logger, Events: events},
		Sweeper:            sweeper,
		Limits:             limits,
		Stream:             hub,
		StreamWriteTimeout: cfg.Stream.WriteTimeout,
		AuthEnabled:        cfg.Auth.Enabled,
		Logger:             logger,
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(handler.RequestID())
	if cfg.RateLimit.Enabled {
		limiter := handler.NewRateLimiter(cfg.RateLimit.RequestsPerSec, cfg.RateLimit.Burst, cfg.RateLimit.ResetInterval)
		router.Use(limiter.Middleware(logger))
	}
	router.Use(handler.AccessLog(logger))
	router.Use(auth.Middleware(initVerifier(cfg.Auth, logger)))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	if p, ok := countCache.(handler.Pinger); ok {
		healthHandler.Cache = p
	}
	healthHandler.Register(router)
	trades.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if hub != nil {
		go hub.Run(ctx, time.Minute)
	}

	if cfg.Cron.Enabled && strings.TrimSpace(cfg.Cron.DeadlineSweep) != "" {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add("deadline_sweep", cfg.Cron.DeadlineSweep, func(ctx context.Context) error {
			res, err := sweeper.SweepExpired(ctx)
			if err != nil {
				return err
			}
			if res.Trades > 0 {
				logger.Info("deadline sweep cancelled trades",
					zap.Int("trades", res.Trades),
					zap.Int64("participants", res.Participants),
				)
			}
			return nil
		})
		if err != nil {
			logger.Warn("cron register deadline sweep failed", zap.Error(err))
		} else {
			cronRunner.Start()
			defer cronRunner.Stop()
		}
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// initVerifier returns nil when bearer auth is off; the auth middleware then
// trusts the X-User-ID header.
func initVerifier(cfg config.AuthConfig, logger *zap.Logger) *auth.JWT {
	if !cfg.Enabled {
		logger.Warn("bearer auth disabled; caller identity comes from request headers")
		return nil
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Fatal("auth.enabled requires auth.jwt_secret")
	}
	return &auth.JWT{Secret: []byte(cfg.JWTSecret), Issuer: cfg.Issuer}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-User-ID,X-User-Role,X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
