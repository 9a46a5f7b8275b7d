package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultCORSOrigins = "http://localhost:5173"

type Config struct {
	AppEnv      string        `mapstructure:"app_env"`
	HTTPPort    string        `mapstructure:"http_port"`
	DatabaseDSN string        `mapstructure:"database_dsn"`
	SQLitePath  string        `mapstructure:"sqlite_path"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl"`
	CORSOrigins string        `mapstructure:"cors_origins"`
	UploadDir   string        `mapstructure:"upload_dir"`
	ArchiveDir  string        `mapstructure:"archive_dir"`
	PublicURL   string        `mapstructure:"public_url"`
	LogLevel    string        `mapstructure:"log_level"`

	Mail    MailConfig    `mapstructure:"mail"`
	Redis   RedisConfig   `mapstructure:"redis"`
	MinIO   MinIOConfig   `mapstructure:"minio"`
	Company CompanyConfig `mapstructure:"company"`
}

type MailConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	From         string        `mapstructure:"from"`
	AdminAddress string        `mapstructure:"admin_address"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// CompanyConfig is printed on every generated document and email.
type CompanyConfig struct {
	Name    string `mapstructure:"name"`
	Email   string `mapstructure:"email"`
	Phone   string `mapstructure:"phone"`
	Address string `mapstructure:"address"`
	Website string `mapstructure:"website"`
}

// IsDevelopment reports whether the console logger and verbose SQL are wanted.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

// Load reads .env (if present) and the process environment.
// JWT_SECRET is the only mandatory value; every other collaborator degrades
// gracefully when left unconfigured.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the production safety checks.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set; authentication cannot work without it")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.ArchiveDir != "" && filepath.Clean(c.ArchiveDir) == filepath.Clean(c.UploadDir) {
		return errors.New("ARCHIVE_DIR must differ from UPLOAD_DIR; archived quotes are not public")
	}
	return nil
}

// Warnings lists non-fatal configuration gaps worth logging at startup.
func (c *Config) Warnings() []string {
	var w []string
	if c.DatabaseDSN == "" {
		w = append(w, "DATABASE_URL not set, falling back to local sqlite at "+c.SQLitePath)
	}
	if c.Mail.APIKey == "" {
		w = append(w, "RESEND_API_KEY not set, emails will be logged instead of sent")
	}
	if c.Redis.Addr == "" {
		w = append(w, "REDIS_ADDR not set, catalog responses will not be cached")
	}
	if c.MinIO.Endpoint == "" {
		w = append(w, "MINIO_ENDPOINT not set, uploads are stored in "+c.UploadDir)
	}
	if c.CORSOrigins == defaultCORSOrigins {
		w = append(w, "CORS_ALLOWED_ORIGINS uses the development default")
	}
	return w
}

// CORSOriginList splits the comma separated origin setting.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "production")
	v.SetDefault("http_port", "8080")
	v.SetDefault("database_dsn", "")
	v.SetDefault("sqlite_path", "irrigation.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl", 24*time.Hour)
	v.SetDefault("cors_origins", defaultCORSOrigins)
	v.SetDefault("upload_dir", "./uploads")
	v.SetDefault("archive_dir", "./archive")
	v.SetDefault("public_url", "http://localhost:8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("mail.api_key", "")
	v.SetDefault("mail.from", "Quotes <quotes@example.com>")
	v.SetDefault("mail.admin_address", "")
	v.SetDefault("mail.timeout", 10*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "irrigation")
	v.SetDefault("minio.use_ssl", false)

	v.SetDefault("company.name", "Irrigation Solutions Ltd")
	v.SetDefault("company.email", "info@example.com")
	v.SetDefault("company.phone", "+254 700 000 000")
	v.SetDefault("company.address", "Nairobi, Kenya")
	v.SetDefault("company.website", "https://example.com")
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("app_env", "APP_ENV")
	v.BindEnv("http_port", "HTTP_PORT", "PORT")
	v.BindEnv("database_dsn", "DATABASE_URL", "DATABASE_DSN")
	v.BindEnv("sqlite_path", "SQLITE_PATH")
	v.BindEnv("jwt_secret", "JWT_SECRET")
	v.BindEnv("jwt_ttl", "JWT_TTL")
	v.BindEnv("cors_origins", "CORS_ALLOWED_ORIGINS")
	v.BindEnv("upload_dir", "UPLOAD_DIR")
	v.BindEnv("archive_dir", "ARCHIVE_DIR")
	v.BindEnv("public_url", "PUBLIC_URL")
	v.BindEnv("log_level", "LOG_LEVEL")

	// Mail
	v.BindEnv("mail.api_key", "RESEND_API_KEY")
	v.BindEnv("mail.from", "MAIL_FROM")
	v.BindEnv("mail.admin_address", "MAIL_ADMIN_ADDRESS")
	v.BindEnv("mail.timeout", "MAIL_TIMEOUT")

	// Redis
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("redis.ttl", "REDIS_CACHE_TTL")

	// MinIO
	v.BindEnv("minio.endpoint", "MINIO_ENDPOINT")
	v.BindEnv("minio.access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("minio.secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("minio.bucket", "MINIO_BUCKET")
	v.BindEnv("minio.use_ssl", "MINIO_USE_SSL")

	// Company details printed on documents
	v.BindEnv("company.name", "COMPANY_NAME")
	v.BindEnv("company.email", "COMPANY_EMAIL")
	v.BindEnv("company.phone", "COMPANY_PHONE")
	v.BindEnv("company.address", "COMPANY_ADDRESS")
	v.BindEnv("company.website", "COMPANY_WEBSITE")
}
