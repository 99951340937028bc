package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 8000
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "heliosensium"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultDBMaxOpen  = 20
	defaultDBMaxIdle  = 5
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
	defaultAdminPath  = "suraj"
	defaultSiteName   = "Heliosensium"
	defaultSiteURL    = "http://localhost:8000"
	defaultBarkServer = "https://api.day.app"

	defaultSessionTTL        = 7 * 24 * time.Hour
	defaultSubmitLimit       = 5
	defaultSubmitWindow      = time.Hour
	defaultRejectedRetention = 90
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Env            string                `yaml:"env"` // "development" | "production"
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
	Paths          RuntimePathsConfig    `yaml:"paths"`
	Site           SiteConfig            `yaml:"site"`
	Auth           AuthConfig            `yaml:"auth"`
	Moderation     ModerationConfig      `yaml:"moderation"`
	Mail           MailConfig            `yaml:"mail"`
	Bark           BarkConfig            `yaml:"bark"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	DBName    string            `yaml:"db_name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`

	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type RuntimePathsConfig struct {
	Logs string `yaml:"logs"`
}

// SiteConfig describes the public site and where the admin panel is mounted.
type SiteConfig struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	AdminPath   string `yaml:"admin_path"`
}

// AuthConfig controls admin sessions and first-run bootstrap.
type AuthConfig struct {
	SessionTTL     time.Duration `yaml:"session_ttl"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	BootstrapUser  string        `yaml:"bootstrap_username"`
	BootstrapPass  string        `yaml:"bootstrap_password"`
	BootstrapEmail string        `yaml:"bootstrap_email"`
}

// ModerationConfig controls submission throttling and cleanup of rejected posts.
type ModerationConfig struct {
	SubmitLimit            int           `yaml:"submit_limit"`
	SubmitWindow           time.Duration `yaml:"submit_window"`
	RejectedRetentionDays  int           `yaml:"rejected_retention_days"`
	NotifyEmails           []string      `yaml:"notify_emails"`
	NotifyAuthorOnDecision bool          `yaml:"notify_author_on_decision"`
}

type MailConfig struct {
	Enable    bool   `yaml:"enable"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	UseResend bool   `yaml:"use_resend"`
	ResendKey string `yaml:"resend_key"`
}

// BarkConfig enables iOS push notifications to moderators via a Bark server.
type BarkConfig struct {
	Key    string `yaml:"key"`
	Server string `yaml:"server"`
}

// rawAppConfig accepts the legacy flat keys alongside the nested layout.
type rawAppConfig struct {
	AppConfig          `yaml:",inline"`
	DatabaseURL        string   `yaml:"database_url"`
	NodeEnv            string   `yaml:"node_env"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	JWTSecretLegacy    string   `yaml:"jwtsecret"`
	TZ                 string   `yaml:"tz"`
	LogDir             string   `yaml:"log_dir"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML content on top of the defaults and validates the result.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{AppConfig: cfg}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	applyRawAppConfig(&cfg, raw)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges that would otherwise fail late at connect time.
func (c *AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if err := ValidateDSN(c.DSN); err != nil {
		return err
	}
	if c.Moderation.SubmitLimit < 0 {
		return fmt.Errorf("invalid moderation.submit_limit %d, expected >= 0", c.Moderation.SubmitLimit)
	}
	if (c.Auth.BootstrapUser == "") != (c.Auth.BootstrapPass == "") {
		return fmt.Errorf("auth.bootstrap_username and auth.bootstrap_password must be set together")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *AppConfig) IsDev() bool { return c.Env == "development" }

// LogDir returns the resolved directory for daily log files.
func (c *AppConfig) LogDir() string { return ResolveRuntimePath(c.Paths.Logs, "logs") }

// AdminPrefix returns the URL prefix of the admin panel, e.g. "/suraj".
func (c *AppConfig) AdminPrefix() string { return "/" + c.Site.AdminPath }

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Site: SiteConfig{
			Name:      defaultSiteName,
			URL:       defaultSiteURL,
			AdminPath: defaultAdminPath,
		},
		Auth: AuthConfig{SessionTTL: defaultSessionTTL},
		Moderation: ModerationConfig{
			SubmitLimit:            defaultSubmitLimit,
			SubmitWindow:           defaultSubmitWindow,
			RejectedRetentionDays:  defaultRejectedRetention,
			NotifyAuthorOnDecision: true,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	next := raw.AppConfig

	if v := strings.TrimSpace(raw.DatabaseURL); v != "" {
		next.Database.DSN = v
	}
	if v := strings.TrimSpace(next.DSN); v != "" && v != cfg.DSN {
		next.Database.DSN = v
	}
	if v := strings.TrimSpace(next.RedisURL); v != "" && v != cfg.RedisURL {
		next.Redis.URL = v
	}
	if v := strings.TrimSpace(raw.NodeEnv); v != "" {
		next.Env = v
	}
	if next.AllowedOrigins == nil && raw.CORSAllowedOrigins != nil {
		next.AllowedOrigins = raw.CORSAllowedOrigins
	}
	if v := strings.TrimSpace(raw.JWTSecretLegacy); v != "" {
		next.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		next.Timezone = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		next.Paths.Logs = v
	}

	next.Database = normalizeDatabaseConfig(next.Database)
	next.Redis = normalizeRedisConfig(next.Redis)
	next.DSN = next.Database.DSNValue()
	next.RedisURL = next.Redis.URLValue()
	next.AllowedOrigins = normalizeOrigins(next.AllowedOrigins)
	next.JWTSecret = strings.TrimSpace(next.JWTSecret)
	next.Timezone = strings.TrimSpace(next.Timezone)
	next.Env = normalizeEnv(next.Env)
	next.Paths.Logs = strings.TrimSpace(next.Paths.Logs)
	next.Site = normalizeSiteConfig(next.Site)
	next.Auth = normalizeAuthConfig(next.Auth)
	next.Moderation = normalizeModerationConfig(next.Moderation)
	next.Mail = normalizeMailConfig(next.Mail)
	next.Bark = normalizeBarkConfig(next.Bark)

	*cfg = next
}
