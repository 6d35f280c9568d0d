package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operacoes-b2b/chamado-service/internal/auth"
	"github.com/operacoes-b2b/chamado-service/internal/domain"
	"github.com/operacoes-b2b/chamado-service/internal/repository/memory"
	"github.com/operacoes-b2b/chamado-service/internal/service"
)

type authFixture struct {
	users      *memory.UserRepository
	sessions   *memory.SessionRepository
	activities *memory.ActivityRepository
	svc        *service.AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:      memory.NewUserRepository(),
		sessions:   memory.NewSessionRepository(),
		activities: memory.NewActivityRepository(),
	}
	f.svc = service.NewAuthService(service.AuthServiceDeps{
		Users:    f.users,
		Sessions: f.sessions,
		Tokens:   auth.NewTokenManager("access-secret", "refresh-secret", 480, 10080),
		Activity: service.NewActivityLogger(f.activities, zap.NewNop()),
		Logger:   zap.NewNop(),
	})
	return f
}

func (f *authFixture) seedUser(t *testing.T, email, password string, ativo bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	user := &domain.User{
		Nome:         "Alice Souza",
		Email:        email,
		PasswordHash: hash,
		Operador:     "Alice",
		Role:         domain.RoleOperador,
		Carteiras:    []string{"B2B Norte"},
		Ativo:        ativo,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

var testMeta = domain.ClientMeta{IP: "10.0.0.1", UserAgent: "go-test"}

func TestLoginIssuesTokenPairAndSession(t *testing.T) {
	f := newAuthFixture()
	user := f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	result, err := f.svc.Login(context.Background(), "alice@example.com", "s3nha-forte", testMeta)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, user.ID, result.User.ID)
	require.Equal(t, "Alice", result.User.Operador)

	session, err := f.sessions.FindByToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, "10.0.0.1", session.IP)

	atividades, err := f.activities.ListByUser(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, atividades, 1)
	require.Equal(t, domain.AcaoLoginSucesso, atividades[0].Acao)

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DataUltimoLogin)
}

func TestLoginWrongPasswordRecordsEachFailure(t *testing.T) {
	f := newAuthFixture()
	user := f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(context.Background(), "alice@example.com", "errada", testMeta)
		requireCode(t, err, "UNAUTHORIZED")
	}

	atividades, err := f.activities.ListByUser(context.Background(), user.ID, 10)
	require.NoError(t, err)
	require.Len(t, atividades, 3)
	for _, atividade := range atividades {
		require.Equal(t, domain.AcaoLoginFalhou, atividade.Acao)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Login(context.Background(), "ninguem@example.com", "qualquer", testMeta)
	requireCode(t, err, "UNAUTHORIZED")
}

func TestLoginInactiveUser(t *testing.T) {
	f := newAuthFixture()
	f.seedUser(t, "inativa@example.com", "s3nha-forte", false)

	_, err := f.svc.Login(context.Background(), "inativa@example.com", "s3nha-forte", testMeta)
	requireCode(t, err, "UNAUTHORIZED")
}

func TestValidateTokenReturnsProfile(t *testing.T) {
	f := newAuthFixture()
	user := f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	result, err := f.svc.Login(context.Background(), "alice@example.com", "s3nha-forte", testMeta)
	require.NoError(t, err)

	profile, err := f.svc.ValidateToken(context.Background(), result.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
	require.Equal(t, domain.RoleOperador, profile.Role)
}

func TestValidateTokenAfterLogoutIsRejected(t *testing.T) {
	f := newAuthFixture()
	user := f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	result, err := f.svc.Login(context.Background(), "alice@example.com", "s3nha-forte", testMeta)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(context.Background(), result.Token, testMeta))

	// The token signature is still valid; only the session authority rejects it.
	_, err = f.svc.ValidateToken(context.Background(), result.Token)
	requireCode(t, err, "UNAUTHORIZED")

	atividades, err := f.activities.ListByUser(context.Background(), user.ID, 10)
	require.NoError(t, err)
	acoes := make([]string, 0, len(atividades))
	for _, atividade := range atividades {
		acoes = append(acoes, atividade.Acao)
	}
	require.Contains(t, acoes, domain.AcaoLogout)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture()
	f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	result, err := f.svc.Login(context.Background(), "alice@example.com", "s3nha-forte", testMeta)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), result.Token, testMeta))
	require.NoError(t, f.svc.Logout(context.Background(), result.Token, testMeta))
	require.NoError(t, f.svc.Logout(context.Background(), "token-desconhecido", testMeta))
}

func TestRefreshMintsNewAccessToken(t *testing.T) {
	f := newAuthFixture()
	user := f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	login, err := f.svc.Login(context.Background(), "alice@example.com", "s3nha-forte", testMeta)
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), login.RefreshToken, testMeta)
	require.NoError(t, err)
	require.NotEqual(t, login.Token, refreshed.Token)
	require.Equal(t, login.RefreshToken, refreshed.RefreshToken)
	require.Equal(t, user.ID, refreshed.User.ID)

	profile, err := f.svc.ValidateToken(context.Background(), refreshed.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)

	// Refresh does not revoke the earlier access token; it stays valid
	// until its own expiry.
	profile, err = f.svc.ValidateToken(context.Background(), login.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
}

func TestRefreshWithGarbageToken(t *testing.T) {
	f := newAuthFixture()
	_, err := f.svc.Refresh(context.Background(), "nao-e-um-jwt", testMeta)
	requireCode(t, err, "UNAUTHORIZED")
}

func TestRefreshAfterLogoutIsRejected(t *testing.T) {
	f := newAuthFixture()
	f.seedUser(t, "alice@example.com", "s3nha-forte", true)

	login, err := f.svc.Login(context.Background(), "alice@example.com", "s3nha-forte", testMeta)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(context.Background(), login.Token, testMeta))

	_, err = f.svc.Refresh(context.Background(), login.RefreshToken, testMeta)
	requireCode(t, err, "UNAUTHORIZED")
}
