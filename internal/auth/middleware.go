package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Token keeps the raw bearer
// credential so handlers can revoke the backing session.
type Principal struct {
	User  domain.Profile
	Token string
}

// TokenValidator checks a bearer token against the session authority and
// resolves the owning user's public profile.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Profile, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	profile, err := m.validator.ValidateToken(c.UserContext(), parts[1])
	if err != nil {
		return err
	}

	c.Locals(principalKey, &Principal{User: *profile, Token: parts[1]})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
