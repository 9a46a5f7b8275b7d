package auth

import (
	"net/http"
	"testing"
	"time"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/models"
	"irrigation-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := testutil.Config()

	app := testutil.NewApp()
	api := app.Group("/api")
	api.Post("/auth/login", LoginHandler(cfg))
	api.Post("/auth/register-super-admin", RegisterSuperAdminHandler(cfg))
	api.Get("/auth/me", JWTMiddleware(cfg), MeHandler())

	admin := api.Group("/admin", JWTMiddleware(cfg), RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
	admin.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	users := admin.Group("/users", RequireRole(models.RoleSuperAdmin))
	users.Get("/", ListUsersHandler())
	users.Post("/", CreateUserHandler())
	return app
}

func TestGenerateAndParseToken(t *testing.T) {
	user := &models.User{ID: 7, Email: "admin@example.com", Role: models.RoleAdmin}

	token, expiresAt, err := GenerateToken(testutil.JWTSecret, time.Hour, user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken(testutil.JWTSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestParseTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	user := &models.User{ID: 1, Email: "a@example.com", Role: models.RoleAdmin}

	token, _, err := GenerateToken(testutil.JWTSecret, time.Hour, user)
	require.NoError(t, err)
	_, err = ParseToken("another-secret-another-secret-0000", token)
	assert.ErrorIs(t, err, apierr.ErrInvalidToken)

	expired := testutil.GenerateTestToken(user, -time.Minute)
	_, err = ParseToken(testutil.JWTSecret, expired)
	assert.ErrorIs(t, err, apierr.ErrTokenExpired)

	_, err = ParseToken(testutil.JWTSecret, "not-a-token")
	assert.ErrorIs(t, err, apierr.ErrInvalidToken)
}

func TestLoginSucceedsAndMeReturnsUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := setupAuthApp(t)
	testutil.SeedUser(t, db, "Grace", "grace@example.com", models.RoleAdmin)

	resp := testutil.DoRequest(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "  Grace@Example.com ",
		"password": testutil.TestPassword,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := testutil.ParseResponse(t, resp)
	assert.Equal(t, "grace@example.com", me["email"])
	assert.Equal(t, "admin", me["role"])
	assert.NotContains(t, me, "password_hash")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := setupAuthApp(t)
	testutil.SeedUser(t, db, "Grace", "grace@example.com", models.RoleAdmin)

	wrongPassword := testutil.DoRequest(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "grace@example.com", "password": "wrong-password",
	}, "")
	unknownEmail := testutil.DoRequest(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "wrong-password",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
	assert.Equal(t, testutil.ParseResponse(t, wrongPassword), testutil.ParseResponse(t, unknownEmail))
}

func TestMiddlewareErrorCodes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := setupAuthApp(t)
	admin := testutil.SeedUser(t, db, "Grace", "grace@example.com", models.RoleAdmin)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing", "", http.StatusUnauthorized, apierr.CodeMissingToken},
		{"malformed", "Token abc", http.StatusUnauthorized, apierr.CodeInvalidToken},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, apierr.CodeInvalidToken},
		{"expired", "Bearer " + testutil.GenerateTestToken(admin, -time.Minute), http.StatusUnauthorized, apierr.CodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/api/admin/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, testutil.ParseResponse(t, resp)["code"])
		})
	}
}

func TestRequireRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := setupAuthApp(t)
	plain := testutil.SeedUser(t, db, "Plain", "plain@example.com", models.RoleUser)
	admin := testutil.SeedUser(t, db, "Admin", "admin@example.com", models.RoleAdmin)
	super := testutil.SeedUser(t, db, "Root", "root@example.com", models.RoleSuperAdmin)

	resp := testutil.DoRequest(t, app, http.MethodGet, "/api/admin/ping", nil, testutil.GenerateTestToken(plain, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/admin/ping", nil, testutil.GenerateTestToken(admin, time.Hour))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/admin/users/", nil, testutil.GenerateTestToken(admin, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodGet, "/api/admin/users/", nil, testutil.GenerateTestToken(super, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, testutil.ParseList(t, resp), 3)
}

func TestRegisterSuperAdminOnlyOnce(t *testing.T) {
	testutil.SetupTestDB(t)
	app := setupAuthApp(t)

	payload := map[string]string{"name": "Root", "email": "root@example.com", "password": "supersecret"}
	resp := testutil.DoRequest(t, app, http.MethodPost, "/api/auth/register-super-admin", payload, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.NotEmpty(t, body["token"])

	payload["email"] = "second@example.com"
	resp = testutil.DoRequest(t, app, http.MethodPost, "/api/auth/register-super-admin", payload, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateUserValidationAndConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	app := setupAuthApp(t)
	super := testutil.SeedUser(t, db, "Root", "root@example.com", models.RoleSuperAdmin)
	token := testutil.GenerateTestToken(super, time.Hour)

	resp := testutil.DoRequest(t, app, http.MethodPost, "/api/admin/users/", map[string]string{
		"name": "Sales", "email": "not-an-email", "password": "short", "role": "owner",
	}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := testutil.ParseResponse(t, resp)
	assert.Equal(t, apierr.CodeValidation, body["code"])
	assert.Len(t, body["fields"], 3)

	resp = testutil.DoRequest(t, app, http.MethodPost, "/api/admin/users/", map[string]string{
		"name": "Sales", "email": "root@example.com", "password": "longenough", "role": "admin",
	}, token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = testutil.DoRequest(t, app, http.MethodPost, "/api/admin/users/", map[string]string{
		"name": "Sales", "email": "sales@example.com", "password": "longenough", "role": "admin",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "admin", testutil.ParseResponse(t, resp)["role"])
}
