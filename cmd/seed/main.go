package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/config"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/observability"
	"github.com/operacoes-b2b/chamado-service/internal/persistence"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

// Seeds the initial admin account. Safe to run repeatedly: an existing
// account with the same email is left untouched.
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

	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		logger.Fatal("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	nome := os.Getenv("SEED_ADMIN_NOME")
	if nome == "" {
		nome = "Administrador"
	}
	operador := os.Getenv("SEED_ADMIN_OPERADOR")
	if operador == "" {
		operador = nome
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	users := repository.NewUserRepository(pg.PoolHandle())

	if _, err := users.FindByEmail(ctx, email); err == nil {
		logger.Info("admin account already present", zap.String("email", email))
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		logger.Fatal("failed to check admin account", zap.Error(err))
	}

	hash, err := auth.HashPassword(password, cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	admin := &domain.User{
		Nome:         nome,
		Email:        email,
		PasswordHash: hash,
		Operador:     operador,
		Role:         domain.RoleAdmin,
		Ativo:        true,
		DataCriacao:  time.Now(),
	}
	if err := users.Create(ctx, admin); err != nil {
		// FindByEmail only sees active accounts; a deactivated admin with
		// the same email surfaces here as a unique violation instead.
		if apperrors.IsUniqueViolation(err) {
			logger.Info("admin account already present", zap.String("email", email))
			return
		}
		logger.Fatal("failed to create admin account", zap.Error(err))
	}

	logger.Info("admin account created", zap.String("email", email), zap.String("id", admin.ID))
}
