package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is the config file read when no -config flag is given. It may
// be absent, in which case defaults and environment variables apply.
const DefaultPath = "configs/config.yaml"

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	APIPrefix  string `koanf:"api_prefix"`
	APIVersion string `koanf:"api_version"`
	Timeout    string `koanf:"timeout"`
	// FullCRUD exposes the read, update, delete and criteria routes of every
	// module besides POST /.
	FullCRUD       bool            `koanf:"full_crud"`
	TrustedProxies []string        `koanf:"trusted_proxies"`
	CORS           CORSConfig      `koanf:"cors"`
	RateLimit      RateLimitConfig `koanf:"rate_limit"`
	Metrics        MetricsConfig   `koanf:"metrics"`
}

// APIBase returns the mount point of the API, e.g. "/api/v1".
func (s ServerConfig) APIBase() string {
	return s.APIPrefix + s.APIVersion
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// APIURL returns the advertised API location, host:port followed by APIBase.
func (s ServerConfig) APIURL() string {
	return s.Host + ":" + strconv.Itoa(s.Port) + s.APIBase()
}

// CORSConfig holds CORS middleware settings. An empty AllowOrigins selects
// the built-in list for the server mode.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowMethods     []string `koanf:"allow_methods"`
	AllowHeaders     []string `koanf:"allow_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver      string         `koanf:"driver"`
	MySQL       MySQLConfig    `koanf:"mysql"`
	SQLite      SQLiteConfig   `koanf:"sqlite"`
	Postgres    PostgresConfig `koanf:"postgres"`
	Pool        PoolConfig     `koanf:"pool"`
	AutoMigrate bool           `koanf:"auto_migrate"`
}

// MySQLConfig holds MySQL-specific settings. Params are appended to the DSN.
type MySQLConfig struct {
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	DBName   string            `koanf:"dbname"`
	Params   map[string]string `koanf:"params"`
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

// Defaults are loaded before any file or environment variable.
var Defaults = map[string]any{
	"server.host":               "localhost",
	"server.port":               3000,
	"server.mode":               gin.DebugMode,
	"server.api_prefix":         "/api",
	"server.api_version":        "/v1",
	"server.metrics.enabled":    true,
	"server.metrics.path":       "/metrics",
	"database.driver":           "mysql",
	"database.mysql.host":       "localhost",
	"database.mysql.port":       3306,
	"database.mysql.user":       "root",
	"database.mysql.dbname":     "webapp_db",
	"database.postgres.port":    5432,
	"database.postgres.sslmode": "disable",
	"database.sqlite.path":      "data/app.db",
	"database.auto_migrate":     true,
	"log.level":                 "info",
	"log.format":                "text",
}

// Load builds the configuration from, in increasing precedence: Defaults, the
// YAML file at configPath, the legacy deployment variables (API_PORT, API_HOST,
// API_URL, API_VERSION, NODE_ENV, DB_*), and APP__ variables.
//
// APP__ variables use double underscores as the hierarchy separator, so
// APP__SERVER__PORT=9090 overrides server.port and
// APP__DATABASE__POOL__MAX_IDLE_CONNS=20 overrides database.pool.max_idle_conns.
//
// A missing file is an error unless configPath is empty or DefaultPath.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range Defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if configPath != "" {
		_, statErr := os.Stat(configPath)
		switch {
		case statErr == nil:
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		case errors.Is(statErr, fs.ErrNotExist) && configPath == DefaultPath:
			// Defaults and environment only.
		default:
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, statErr)
		}
	}

	driver := k.String("database.driver")
	if v := os.Getenv("APP__DATABASE__DRIVER"); v != "" {
		driver = v
	}
	if err := k.Load(env.ProviderWithValue("", ".", legacyEnv(strings.TrimSpace(driver))), nil); err != nil {
		return nil, fmt.Errorf("failed to load legacy env variables: %w", err)
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

// legacyEnv maps the legacy deployment variables onto config keys.
// DB_* variables target the block of the selected driver.
func legacyEnv(driver string) func(key, value string) (string, any) {
	return func(key, value string) (string, any) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		switch key {
		case "API_PORT":
			return "server.port", value
		case "API_HOST":
			return "server.host", value
		case "API_URL":
			return "server.api_prefix", value
		case "API_VERSION":
			return "server.api_version", value
		case "NODE_ENV":
			return "server.mode", ModeFromNodeEnv(value)
		}

		field, ok := strings.CutPrefix(key, "DB_")
		if !ok {
			return "", nil
		}
		if driver == "sqlite" {
			if field == "NAME" {
				return "database.sqlite.path", value
			}
			return "", nil
		}
		if driver != "mysql" && driver != "postgres" {
			return "", nil
		}
		switch field {
		case "HOST":
			return "database." + driver + ".host", value
		case "PORT":
			return "database." + driver + ".port", value
		case "USER":
			return "database." + driver + ".user", value
		case "PASSWORD":
			return "database." + driver + ".password", value
		case "NAME":
			return "database." + driver + ".dbname", value
		}
		return "", nil
	}
}

// ModeFromNodeEnv translates a NODE_ENV value into a gin mode.
func ModeFromNodeEnv(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// Validate checks cross-field constraints and supported values.
func (c *Config) Validate() error {
	// Validate server.mode.
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

	c.Server.APIPrefix = normalizePathSegment(c.Server.APIPrefix)
	c.Server.APIVersion = normalizePathSegment(c.Server.APIVersion)

	proxies := make([]string, 0, len(c.Server.TrustedProxies))
	for _, p := range c.Server.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	c.Server.TrustedProxies = proxies

	if c.Server.Metrics.Enabled {
		path := strings.TrimSpace(c.Server.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("invalid server.metrics.path %q: must start with '/'", c.Server.Metrics.Path)
		}
		c.Server.Metrics.Path = path
	}

	if err := c.Database.validate(c.Server.Mode); err != nil {
		return err
	}

	// Normalize optional duration fields: whitespace-only means unset.
	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)
	c.Database.Pool.ConnMaxLifetime = strings.TrimSpace(c.Database.Pool.ConnMaxLifetime)

	durations := []struct {
		name  string
		value string
	}{
		{"server.timeout", c.Server.Timeout},
		{"server.cors.max_age", c.Server.CORS.MaxAge},
		{"database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime},
	}
	for _, f := range durations {
		if f.value == "" {
			continue
		}
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be a valid duration (e.g. \"30s\", \"1h\"): %w", f.name, f.value, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be greater than 0", f.name, f.value)
		}
	}

	// When enabled, rps and burst must be positive.
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %v: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}

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

func (d *DatabaseConfig) validate(mode string) error {
	d.Driver = strings.ToLower(strings.TrimSpace(d.Driver))

	switch d.Driver {
	case "sqlite":
		path := strings.TrimSpace(d.SQLite.Path)
		if path == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		d.SQLite.Path = path

	case "mysql":
		m := &d.MySQL
		m.Host = strings.TrimSpace(m.Host)
		m.User = strings.TrimSpace(m.User)
		m.DBName = strings.TrimSpace(m.DBName)
		if m.Host == "" {
			return fmt.Errorf("database.mysql.host is required when driver is mysql")
		}
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("invalid database.mysql.port %d: must be between 1 and 65535", m.Port)
		}
		if m.User == "" {
			return fmt.Errorf("database.mysql.user is required when driver is mysql")
		}
		if m.DBName == "" {
			return fmt.Errorf("database.mysql.dbname is required when driver is mysql")
		}

	case "postgres":
		p := &d.Postgres
		host := strings.TrimSpace(p.Host)
		if host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is postgres")
		}
		if p.Port < 1 || p.Port > 65535 {
			return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", p.Port)
		}
		user := strings.TrimSpace(p.User)
		if user == "" {
			return fmt.Errorf("database.postgres.user is required when driver is postgres")
		}
		dbName := strings.TrimSpace(p.DBName)
		if dbName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
		}
		sslMode := strings.TrimSpace(p.SSLMode)
		switch sslMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", p.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
		}
		if mode == gin.ReleaseMode {
			switch sslMode {
			case "require", "verify-ca", "verify-full":
			default:
				return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", p.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
			}
		}
		p.Host, p.User, p.DBName, p.SSLMode = host, user, dbName, sslMode

	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q, %q", d.Driver, "mysql", "postgres", "sqlite")
	}
	return nil
}

// normalizePathSegment turns " v1/ " into "/v1". Empty stays empty.
func normalizePathSegment(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return ""
	}
	return "/" + s
}
