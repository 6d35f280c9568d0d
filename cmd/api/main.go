package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/operacoes-b2b/chamado-service/internal/api/http"
	"github.com/operacoes-b2b/chamado-service/internal/api/http/handlers"
	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/config"
	"github.com/operacoes-b2b/chamado-service/internal/events"
	"github.com/operacoes-b2b/chamado-service/internal/observability"
	"github.com/operacoes-b2b/chamado-service/internal/persistence"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
	"github.com/operacoes-b2b/chamado-service/internal/service"
	"github.com/operacoes-b2b/chamado-service/internal/sheets"
	"github.com/operacoes-b2b/chamado-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	chamadoRepo := repository.NewChamadoRepository(pool)
	historicoRepo := repository.NewChamadoHistoricoRepository(pool)

	activityLogger := service.NewActivityLogger(activityRepo, logger)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTRefreshSecret,
		cfg.Auth.AccessTokenTTLMinutes,
		cfg.Auth.RefreshTokenTTLMinutes,
	)

	authService := service.NewAuthService(service.AuthServiceDeps{
		Users:    userRepo,
		Sessions: sessionRepo,
		Tokens:   tokenManager,
		Activity: activityLogger,
		Cache:    redis,
		Logger:   logger,
	})
	chamadoService := service.NewChamadoService(service.ChamadoServiceDeps{
		Chamados:   chamadoRepo,
		Historicos: historicoRepo,
		Activity:   activityLogger,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	notifications := service.NewNotificationService(cfg.Notification, logger)
	notifications.Register(dispatcher)

	var sheetGateway sheets.Gateway
	if cfg.Sheets.Enabled() {
		client := sheets.NewClient(cfg.Sheets, logger)
		sheetGateway = client
		sheetSync := service.NewSheetSyncService(client, cfg.Sheets, logger)
		sheetSync.Register(dispatcher)
	} else {
		logger.Info("spreadsheet integration disabled")
	}

	sweeper := worker.NewSessionSweeper(sessionRepo,
		time.Duration(cfg.Auth.SessionSweepIntervalMin)*time.Minute, logger)
	go sweeper.Run(ctx)

	authMiddleware := auth.NewAuthMiddleware(authService)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Chamados:       handlers.NewChamadosHandler(chamadoService),
		Sheets:         handlers.NewSheetsHandler(sheetGateway),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
