package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// PlaceholderJWTSecret is the value shipped in configs/config.yaml. It is
// refused in release mode and replaced with a random secret otherwise.
const PlaceholderJWTSecret = "CHANGE-ME-in-production-use-openssl-rand-hex-32"

const minJWTSecretLength = 32

// Config is the top-level application configuration.
type Config struct {
	App      AppConfig      `koanf:"app"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// AppConfig describes the running service. Environment and version are
// reported by the health endpoint.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string     `koanf:"host"`
	Port           int        `koanf:"port"`
	Mode           string     `koanf:"mode"`
	APIPrefix      string     `koanf:"api_prefix"`
	Timeout        string     `koanf:"timeout"`
	TrustRequestID bool       `koanf:"trust_request_id"`
	CORS           CORSConfig `koanf:"cors"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver         string         `koanf:"driver"`
	SQLite         SQLiteConfig   `koanf:"sqlite"`
	Postgres       PostgresConfig `koanf:"postgres"`
	Pool           PoolConfig     `koanf:"pool"`
	MigrateOnStart bool           `koanf:"migrate_on_start"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// AuthConfig holds token signing and password hashing settings.
type AuthConfig struct {
	JWTSecret           string `koanf:"jwt_secret"`
	Algorithm           string `koanf:"algorithm"`
	AccessTokenExpiry   string `koanf:"access_token_expiry"`
	RefreshTokenExpiry  string `koanf:"refresh_token_expiry"`
	RotateRefreshTokens bool   `koanf:"rotate_refresh_tokens"`
	BcryptCost          int    `koanf:"bcrypt_cost"`

	// SecretGenerated is set by Validate when it replaced an empty or
	// placeholder secret with a random one.
	SecretGenerated bool `koanf:"-"`
}

// AccessTTL returns the validated access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	d, _ := time.ParseDuration(a.AccessTokenExpiry)
	return d
}

// RefreshTTL returns the validated refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	d, _ := time.ParseDuration(a.RefreshTokenExpiry)
	return d
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__AUTH__JWT_SECRET overrides auth.jwt_secret.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values, filling
// defaults for optional fields.
func (c *Config) Validate() error {
	if err := c.validateApp(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateApp() error {
	c.App.Name = strings.TrimSpace(c.App.Name)
	if c.App.Name == "" {
		c.App.Name = "itemhub"
	}
	c.App.Version = strings.TrimSpace(c.App.Version)
	if c.App.Version == "" {
		c.App.Version = "dev"
	}
	c.App.Environment = strings.TrimSpace(c.App.Environment)
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	// An empty prefix serves the API at the root.
	prefix := strings.TrimRight(strings.TrimSpace(c.Server.APIPrefix), "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("invalid server.api_prefix %q: must start with '/'", c.Server.APIPrefix)
	}
	c.Server.APIPrefix = prefix

	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	if err := validateOptionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)
	if err := validateOptionalDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}

	origins := make([]string, 0, len(c.Server.CORS.AllowOrigins))
	for _, o := range c.Server.CORS.AllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 && c.Server.Mode == gin.DebugMode {
		origins = []string{"*"}
	}
	c.Server.CORS.AllowOrigins = origins
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	if c.Database.Driver == "sqlite" {
		sqlitePath := strings.TrimSpace(c.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = sqlitePath
	}

	if c.Database.Driver == "postgres" {
		pg := &c.Database.Postgres
		pg.Host = strings.TrimSpace(pg.Host)
		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is postgres")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
		}
		pg.User = strings.TrimSpace(pg.User)
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required when driver is postgres")
		}
		pg.DBName = strings.TrimSpace(pg.DBName)
		if pg.DBName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
		}

		sslMode := strings.TrimSpace(pg.SSLMode)
		switch sslMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", pg.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
		}
		if c.Server.Mode == gin.ReleaseMode {
			switch sslMode {
			case "require", "verify-ca", "verify-full":
			default:
				return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
			}
		}
		pg.SSLMode = sslMode
	}

	c.Database.Pool.ConnMaxLifetime = strings.TrimSpace(c.Database.Pool.ConnMaxLifetime)
	return validateOptionalDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime)
}

func (c *Config) validateAuth() error {
	a := &c.Auth

	a.Algorithm = strings.ToUpper(strings.TrimSpace(a.Algorithm))
	switch a.Algorithm {
	case "":
		a.Algorithm = "HS256"
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("invalid auth.algorithm %q: must be one of %q, %q, %q", a.Algorithm, "HS256", "HS384", "HS512")
	}

	a.AccessTokenExpiry = strings.TrimSpace(a.AccessTokenExpiry)
	if a.AccessTokenExpiry == "" {
		a.AccessTokenExpiry = "30m"
	}
	if err := validateOptionalDuration("auth.access_token_expiry", a.AccessTokenExpiry); err != nil {
		return err
	}
	a.RefreshTokenExpiry = strings.TrimSpace(a.RefreshTokenExpiry)
	if a.RefreshTokenExpiry == "" {
		a.RefreshTokenExpiry = "168h"
	}
	if err := validateOptionalDuration("auth.refresh_token_expiry", a.RefreshTokenExpiry); err != nil {
		return err
	}

	// bcrypt accepts costs 4..31; 0 selects bcrypt.DefaultCost.
	if a.BcryptCost != 0 && (a.BcryptCost < 4 || a.BcryptCost > 31) {
		return fmt.Errorf("invalid auth.bcrypt_cost %d: must be 0 or between 4 and 31", a.BcryptCost)
	}

	secret := strings.TrimSpace(a.JWTSecret)
	if secret == "" || secret == PlaceholderJWTSecret {
		if c.Server.Mode == gin.ReleaseMode {
			return fmt.Errorf("auth.jwt_secret must be set to a non-placeholder value in release mode")
		}
		generated, err := randomSecret()
		if err != nil {
			return fmt.Errorf("failed to generate auth.jwt_secret: %w", err)
		}
		a.JWTSecret = generated
		a.SecretGenerated = true
		return nil
	}
	if len(secret) < minJWTSecretLength {
		return fmt.Errorf("invalid auth.jwt_secret: must be at least %d characters", minJWTSecretLength)
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(secret) < 3 {
		return fmt.Errorf("auth.jwt_secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}
	a.JWTSecret = secret
	return nil
}

func (c *Config) validateMetrics() error {
	path := strings.TrimSpace(c.Metrics.Path)
	if path == "" {
		path = "/metrics"
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("invalid metrics.path %q: must start with '/'", c.Metrics.Path)
	}
	c.Metrics.Path = path
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

// validateOptionalDuration accepts an empty value or a positive Go duration.
func validateOptionalDuration(name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, value)
	}
	return nil
}

// randomSecret returns 32 random bytes, hex encoded.
func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			classes++
		}
	}
	return classes
}
