// Package testutil wires an in-memory database and Fiber helpers for
// handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"irrigation-backend/internal/apierr"
	"irrigation-backend/internal/config"
	"irrigation-backend/internal/database"
	"irrigation-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret    = "irrigation-test-secret-0123456789abcdef"
	TestPassword = "password123"
)

// Config returns a configuration suitable for tests: no mail key, no Redis,
// no MinIO.
func Config() *config.Config {
	return &config.Config{
		AppEnv:     "test",
		JWTSecret:  JWTSecret,
		JWTTTL:     time.Hour,
		UploadDir:  "",
		ArchiveDir: "",
		PublicURL:  "http://localhost:8080",
		SQLitePath: ":memory:",
		Mail: config.MailConfig{
			From:         "Quotes <quotes@example.com>",
			AdminAddress: "sales@example.com",
			Timeout:      time.Second,
		},
		Company: config.CompanyConfig{
			Name:    "Irrigation Solutions Ltd",
			Email:   "info@example.com",
			Phone:   "+254 700 000 000",
			Address: "Nairobi, Kenya",
			Website: "https://example.com",
		},
	}
}

// SetupTestDB opens a private in-memory sqlite database, migrates it and
// installs it as database.DB for the duration of the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("test database handle: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		sqlDB.Close()
	})
	return db
}

// NewApp returns a Fiber app with the production error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: apierr.Handler(zap.NewNop()),
	})
}

// SeedUser inserts a user whose password is TestPassword.
func SeedUser(t *testing.T, db *gorm.DB, name, email string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// GenerateTestToken signs a token the way the login handler does, with a
// custom expiry so expired-token paths can be exercised.
func GenerateTestToken(user *models.User, expiresIn time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"sub":     user.Email,
		"iss":     "irrigation-backend",
		"iat":     now.Unix(),
		"exp":     now.Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte(JWTSecret))
	return signed
}

// DoRequest runs a JSON request through app.
func DoRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal request body: %v", err)
			}
			reader = bytes.NewBuffer(payload)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// ParseResponse decodes a JSON response body into a generic map.
func ParseResponse(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	decode(t, resp, &out)
	return out
}

// ParseList decodes a JSON array response.
func ParseList(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	decode(t, resp, &out)
	return out
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode response %q: %v", string(raw), err)
	}
}
