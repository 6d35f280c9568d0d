package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operacoes-b2b/chamado-service/internal/domain"
	apperrors "github.com/operacoes-b2b/chamado-service/pkg/util"
)

// RoleAllowed reports whether role is in the allowed set.
func RoleAllowed(role domain.Role, allowed ...domain.Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}

// CanEditChamado is the ownership-authority predicate for mutations: admin
// may always edit; anyone else only when the chamado's current operator is
// the acting operator.
func CanEditChamado(role domain.Role, chamadoOperador, operador string) bool {
	if role == domain.RoleAdmin {
		return true
	}
	return chamadoOperador == operador
}

// RequireRole ensures the authenticated principal holds one of the allowed
// roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !RoleAllowed(principal.User.Role, allowed...) {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
