package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sanosuguru/go-seat-reservation/internal/api"
	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	apimw "github.com/sanosuguru/go-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/config"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/lock"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-reservation/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	reconcilerKey   = "reconciler:expiry"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("起動に失敗しました", zap.Error(err))
	}
	logger.Info("サーバーが正常にシャットダウンしました")
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}
	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	// Redis（キャッシュとロック。無効または接続不可ならキャッシュなしで動く）
	var (
		redisClient *goredis.Client
		cache       application.SeatCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(&cfg.Redis)
		if err != nil {
			if cfg.Reconciler.LockBackend == config.LockBackendRedis {
				return err
			}
			logger.Warn("Redisに接続できないためキャッシュを無効にします", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = redisinfra.NewSeatCache(redisClient)
		}
	}

	// RabbitMQ（URL 未設定または接続不可ならイベント送信なし）
	var publisher application.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Warn("RabbitMQに接続できないためイベント送信を無効にします", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// リポジトリ・サービス
	txManager := postgres.NewTxManager(db)
	showRepo := postgres.NewShowRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)

	showService := application.NewShowService(showRepo)
	seatService := application.NewSeatService(seatRepo, showRepo, cache)
	reservationService := application.NewReservationService(txManager, reservationRepo, seatRepo, cache, publisher, m)

	var locker lock.Locker
	switch cfg.Reconciler.LockBackend {
	case config.LockBackendRedis:
		locker = redisinfra.NewLockManager(redisClient).Locker(reconcilerKey, cfg.Reconciler.LockTTL)
	default:
		locker = postgres.NewAdvisoryLocker(db, cfg.Reconciler.LockKey1, cfg.Reconciler.LockKey2)
	}
	expiryService := application.NewExpiryService(txManager, reservationRepo, seatRepo, locker, cache, publisher, m,
		application.ExpiryConfig{
			StaleAfter:  cfg.Reconciler.StaleAfter,
			BatchSize:   cfg.Reconciler.BatchSize,
			LockBackend: cfg.Reconciler.LockBackend,
		})
	reconciler := worker.NewExpiryReconciler(expiryService, cfg.Reconciler.Interval)

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	apimw.SetupMiddleware(e, m)

	handler.RegisterRoutes(e, handler.Handlers{
		Health:      handler.NewHealthHandler(db),
		Show:        handler.NewShowHandler(showService),
		Seat:        handler.NewSeatHandler(seatService),
		Reservation: handler.NewReservationHandler(reservationService),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), apimw.MetricsBasicAuth(apimw.LoadMetricsConfig()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// シグナルでサイクルを打ち切らない。停止は reconciler.Stop だけが行う
	if cfg.Reconciler.Enabled {
		reconciler.Start(context.WithoutCancel(ctx))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバー起動エラー: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")

		// 新しいサイクルを始めないよう先にリコンサイラーを止める
		reconciler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
		}
		return nil
	})
	return g.Wait()
}
