package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/persistence"
	"github.com/operacoes-b2b/chamado-service/internal/repository"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

const sessionCachePrefix = "session:"

// AuthServiceDeps bundles the collaborators of AuthService.
type AuthServiceDeps struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Tokens   *auth.TokenManager
	Activity *ActivityLogger
	Cache    *persistence.Redis
	Logger   *zap.Logger
}

// AuthService owns login, logout, token validation and refresh. The session
// table is the authority for token validity; a signed token whose session was
// invalidated is rejected. Redis only caches session lookups.
type AuthService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *auth.TokenManager
	activity *ActivityLogger
	cache    *persistence.Redis
	logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	return &AuthService{
		users:    deps.Users,
		sessions: deps.Sessions,
		tokens:   deps.Tokens,
		activity: deps.Activity,
		cache:    deps.Cache,
		logger:   deps.Logger,
	}
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	User         domain.Profile
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Login authenticates the credentials, opens a session and issues the token
// pair. A wrong password for an existing user is recorded as a failed login
// attempt; an unknown email is rejected without any record.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.ClientMeta) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.activity.Log(ctx, user.ID, domain.AcaoLoginFalhou, map[string]any{"email": email}, meta)
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refreshToken, _, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	session := &domain.Session{
		UserID:       user.ID,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		Ativo:        true,
		DataCriacao:  time.Now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.cacheSession(ctx, token, user.ID, expiresAt)

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Warn("unable to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.activity.Log(ctx, user.ID, domain.AcaoLoginSucesso, map[string]any{"email": email}, meta)

	return &LoginResult{
		User:         user.PublicProfile(),
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout invalidates the session backing the token. Logging out an unknown
// or already invalidated token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string, meta domain.ClientMeta) error {
	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return apperrors.NewInternalError(err)
	}

	if err := s.sessions.Invalidate(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.dropCachedSession(ctx, token)
	s.activity.Log(ctx, session.UserID, domain.AcaoLogout, nil, meta)
	return nil
}

// ValidateToken checks the token signature, then the backing session, then
// the owning user, and returns the public profile. Implements the
// auth.TokenValidator contract.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Profile, error) {
	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}

	userID, cached := s.cachedSession(ctx, token)
	if !cached {
		session, err := s.sessions.FindByToken(ctx, token)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewUnauthorized("session not found or revoked")
			}
			return nil, apperrors.NewInternalError(err)
		}
		userID = session.UserID
		s.cacheSession(ctx, token, session.UserID, session.ExpiresAt)
	}

	if claims.UserID != userID {
		return nil, apperrors.NewUnauthorized("session not found or revoked")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found or inactive")
		}
		return nil, apperrors.NewInternalError(err)
	}

	profile := user.PublicProfile()
	return &profile, nil
}

// Refresh mints a new access token for the session's refresh token. The
// refresh token is not rotated, and the previous access token stays valid
// until its own expiry: the new token gets its own session record and the
// old one keeps its own until logout or the expiry sweep.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta domain.ClientMeta) (*LoginResult, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired refresh token")
	}

	session, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("session not found or revoked")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if session.UserID != claims.UserID {
		return nil, apperrors.NewUnauthorized("session not found or revoked")
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found or inactive")
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	newSession := &domain.Session{
		UserID:       user.ID,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		IP:           meta.IP,
		UserAgent:    meta.UserAgent,
		Ativo:        true,
		DataCriacao:  time.Now(),
	}
	if err := s.sessions.Create(ctx, newSession); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.cacheSession(ctx, token, user.ID, expiresAt)

	return &LoginResult{
		User:         user.PublicProfile(),
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) cacheSession(ctx context.Context, token, userID string, expiresAt time.Time) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.cache.Client.Set(ctx, sessionCachePrefix+token, userID, ttl).Err(); err != nil {
		s.logger.Debug("session cache set failed", zap.Error(err))
	}
}

func (s *AuthService) cachedSession(ctx context.Context, token string) (string, bool) {
	if s.cache == nil || s.cache.Client == nil {
		return "", false
	}
	userID, err := s.cache.Client.Get(ctx, sessionCachePrefix+token).Result()
	if err != nil {
		return "", false
	}
	return userID, true
}

func (s *AuthService) dropCachedSession(ctx context.Context, token string) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	if err := s.cache.Client.Del(ctx, sessionCachePrefix+token).Err(); err != nil {
		s.logger.Debug("session cache delete failed", zap.Error(err))
	}
}
