package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	for _, k := range []string{"DATABASE_URL", "DATABASE_DSN", "HTTP_PORT", "PORT", "APP_ENV", "JWT_TTL", "RESEND_API_KEY", "MAIL_TIMEOUT", "MINIO_BUCKET", "ARCHIVE_DIR", "UPLOAD_DIR"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, "irrigation", cfg.MinIO.Bucket)
	assert.Equal(t, "./archive", cfg.ArchiveDir)
	assert.False(t, cfg.IsDevelopment())
	assert.Contains(t, cfg.Warnings(), "RESEND_API_KEY not set, emails will be logged instead of sent")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("APP_ENV", "development")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("RESEND_API_KEY", "re_123")
	t.Setenv("MAIL_ADMIN_ADDRESS", "sales@farm.test")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("COMPANY_NAME", "Green Valley")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test, ,https://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "re_123", cfg.Mail.APIKey)
	assert.Equal(t, "sales@farm.test", cfg.Mail.AdminAddress)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "Green Valley", cfg.Company.Name)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOriginList())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing secret", Config{JWTTTL: time.Hour}, "JWT_SECRET is not set"},
		{"short secret", Config{JWTSecret: "short", JWTTTL: time.Hour}, "at least 32 characters"},
		{"zero ttl", Config{JWTSecret: testSecret}, "JWT_TTL must be positive"},
		{"archive in uploads", Config{JWTSecret: testSecret, JWTTTL: time.Hour, UploadDir: "./uploads", ArchiveDir: "uploads/"}, "ARCHIVE_DIR must differ"},
		{"ok", Config{JWTSecret: testSecret, JWTTTL: time.Hour, UploadDir: "./uploads", ArchiveDir: "./archive"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
