package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/issue-service/pkg/util"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, expiresAt, err := tm.GenerateToken(7, 3)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.EqualValues(t, 3, claims.OrganizationID)
	assert.Equal(t, "7", claims.Subject)
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenManager("one", time.Hour).GenerateToken(7, 3)
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsMissingOrganization(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.GenerateToken(7, 0)
	require.NoError(t, err)

	_, err = tm.ParseToken(token)
	assert.Error(t, err)
}

func newProtectedApp(tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/orgs/:orgId/ping", NewAuthMiddleware(tm).Handle, RequireOrganization(), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.JSON(fiber.Map{"user": principal.UserID})
	})
	return app
}

func TestMiddlewareEnforcesOrganization(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	app := newProtectedApp(tm)
	token, _, err := tm.GenerateToken(7, 3)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/orgs/3/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/orgs/4/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/orgs/3/ping", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
