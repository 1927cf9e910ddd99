package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/akarimov/spimextrading/internal/trading/application"
	tradingcache "github.com/akarimov/spimextrading/internal/trading/infrastructure/cache"
	"github.com/akarimov/spimextrading/internal/trading/infrastructure/persistence/postgres"
	httpserver "github.com/akarimov/spimextrading/internal/trading/interfaces/http"
	"github.com/akarimov/spimextrading/pkg/cache"
	"github.com/akarimov/spimextrading/pkg/config"
	"github.com/akarimov/spimextrading/pkg/db"
	"github.com/akarimov/spimextrading/pkg/logger"
	"github.com/akarimov/spimextrading/pkg/metrics"
	"github.com/akarimov/spimextrading/pkg/middleware"
)

var configPath = flag.String("config", "configs/trading/config.toml", "config file path")

func main() {
	flag.Parse()
	ctx := context.Background()

	// 1. 配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 3. 指标
	metricsImpl := metrics.New("trading")

	// 4. 数据库
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
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	// 5. Redis（连接失败时降级为无缓存运行）
	var backend tradingcache.Backend
	if cfg.Cache.Enabled {
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
			logger.Warn(ctx, "failed to init redis, running without query cache", "error", err)
		} else {
			defer redisCache.Close()
			backend = redisCache
		}
	}

	// 6. 缓存策略与适配器
	ttlPolicy, err := tradingcache.NewPolicy(
		cfg.Cache.Timezone,
		cfg.Cache.CutoverHour,
		cfg.Cache.CutoverMinute,
		time.Duration(cfg.Cache.FixedTTL)*time.Second,
	)
	if err != nil {
		logger.Fatal(ctx, "failed to init cache TTL policy", "error", err)
	}
	store := tradingcache.NewStore(backend, metricsImpl)

	// 7. 仓储与应用服务
	repo := postgres.NewTradingResultRepository(database.DB, metricsImpl)
	service := application.NewTradingQueryService(repo, store, ttlPolicy)

	// 8. 接口层
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(metricsImpl),
	)
	handler := httpserver.NewHandler(service)
	handler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(metricsImpl.Handler()))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 9. 启动与优雅停机
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(gctx, "shutting down server...")
		case <-gctx.Done():
			logger.Info(gctx, "context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
	}
}
