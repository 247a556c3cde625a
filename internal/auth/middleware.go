package auth

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

const principalKey = "auth_principal"

// OrgParam is the route parameter holding the organization id.
const OrgParam = "orgId"

// Principal represents the authenticated caller.
type Principal struct {
	UserID         int64
	OrganizationID int64
}

// AuthMiddleware validates bearer tokens and stores the principal.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
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

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(principalKey, &Principal{UserID: claims.UserID, OrganizationID: claims.OrganizationID})
	return c.Next()
}

// RequireOrganization rejects requests whose :orgId differs from the
// principal's organization.
func RequireOrganization() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		orgID, err := strconv.ParseInt(c.Params(OrgParam), 10, 64)
		if err != nil || orgID <= 0 {
			return apperrors.NewValidationError("invalid organization id", nil)
		}
		if orgID != principal.OrganizationID {
			return apperrors.NewForbidden("organization access denied")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
