// Package config provides configuration loading for stockwatch.
package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/restock-systems/stockwatch/internal/models"
)

// Relay modes for the hop between analysis and delivery.
const (
	RelayHTTP   = "http"
	RelayNATS   = "nats"
	RelayDirect = "direct"
)

// Data-store drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

// Config holds all configuration for stockwatch
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	GenAI       GenAIConfig       `mapstructure:"genai"`
	Push        PushConfig        `mapstructure:"push"`
	Datastore   DatastoreConfig   `mapstructure:"datastore"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Relay       RelayConfig       `mapstructure:"relay"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GenAIConfig holds text-generation settings
type GenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PushConfig holds push gateway and credential exchange settings
type PushConfig struct {
	ServiceAccount     string        `mapstructure:"service_account"`
	GatewayURL         string        `mapstructure:"gateway_url"`
	TokenURL           string        `mapstructure:"token_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	InitialBackoff     time.Duration `mapstructure:"initial_backoff"`
	TokenRefreshMargin time.Duration `mapstructure:"token_refresh_margin"`
}

// DatastoreConfig holds stock record storage settings
type DatastoreConfig struct {
	Driver      string         `mapstructure:"driver"`
	URL         string         `mapstructure:"url"`
	ServiceKey  string         `mapstructure:"service_key"`
	Table       string         `mapstructure:"table"`
	OwnerColumn string         `mapstructure:"owner_column"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	AutoMigrate bool           `mapstructure:"auto_migrate"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection URL for pgx and golang-migrate.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

// AuthConfig holds caller authentication settings. With JWTSecret set,
// user tokens are verified locally; otherwise they are validated against
// the identity endpoint at URL.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	URL       string        `mapstructure:"url"`
	AnonKey   string        `mapstructure:"anon_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// RelayConfig holds settings for handing critical alerts to the dispatcher
type RelayConfig struct {
	Mode       string        `mapstructure:"mode"`
	URL        string        `mapstructure:"url"`
	ServiceKey string        `mapstructure:"service_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Worker     bool          `mapstructure:"worker"`
}

// RedisConfig holds Redis configuration for the token cache and idempotency store
type RedisConfig struct {
	URL        string `mapstructure:"url"`
	Enabled    bool   `mapstructure:"enabled"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// NATSConfig holds NATS message broker configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Enabled       bool          `mapstructure:"enabled"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// IdempotencyConfig holds duplicate-notification suppression settings
type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// envAliases maps config keys to the environment variable names the
// hosted deployment already uses. Prefixed names win over aliases.
var envAliases = map[string][]string{
	"genai.api_key":        {"GOOGLE_API_KEY"},
	"push.service_account": {"FIREBASE_SERVICE_ACCOUNT"},
	"datastore.url":        {"SUPABASE_URL"},
	"datastore.service_key": {
		"MY_SERVICE_ROLE_KEY",
		"SUPABASE_SERVICE_ROLE_KEY",
	},
	"auth.jwt_secret": {"SUPABASE_JWT_SECRET"},
	"auth.anon_key":   {"SUPABASE_ANON_KEY"},
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stockwatch")
	}

	// Environment variables override (STOCKWATCH_SERVER_PORT, etc.)
	v.SetEnvPrefix("STOCKWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, aliases := range envAliases {
		names := append([]string{"STOCKWATCH_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Only fail if a specific config path was given
		if configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.derive()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("genai.api_key", "")
	v.SetDefault("genai.model", "gemini-2.5-flash")
	v.SetDefault("genai.timeout", "10s")

	v.SetDefault("push.service_account", "")
	v.SetDefault("push.gateway_url", "https://fcm.googleapis.com")
	v.SetDefault("push.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("push.timeout", "10s")
	v.SetDefault("push.max_attempts", 3)
	v.SetDefault("push.initial_backoff", "500ms")
	v.SetDefault("push.token_refresh_margin", "5m")

	v.SetDefault("datastore.driver", DriverREST)
	v.SetDefault("datastore.url", "")
	v.SetDefault("datastore.service_key", "")
	v.SetDefault("datastore.table", "products")
	v.SetDefault("datastore.owner_column", "owner_id")
	v.SetDefault("datastore.timeout", "10s")
	v.SetDefault("datastore.auto_migrate", false)
	v.SetDefault("datastore.postgres.host", "localhost")
	v.SetDefault("datastore.postgres.port", 5432)
	v.SetDefault("datastore.postgres.user", "stockwatch")
	v.SetDefault("datastore.postgres.password", "")
	v.SetDefault("datastore.postgres.database", "stockwatch")
	v.SetDefault("datastore.postgres.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.url", "")
	v.SetDefault("auth.anon_key", "")
	v.SetDefault("auth.timeout", "5s")

	v.SetDefault("relay.mode", RelayHTTP)
	v.SetDefault("relay.url", "")
	v.SetDefault("relay.service_key", "")
	v.SetDefault("relay.timeout", "30s")
	v.SetDefault("relay.worker", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.timeout", "10s")

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", "10m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// derive fills settings that default to other settings.
func (c *Config) derive() {
	base := strings.TrimRight(c.Datastore.URL, "/")
	if c.Auth.URL == "" && base != "" {
		c.Auth.URL = base + "/auth/v1"
	}
	if c.Relay.URL == "" && base != "" {
		c.Relay.URL = base + "/functions/v1/push-notification"
	}
	if c.Relay.ServiceKey == "" {
		c.Relay.ServiceKey = c.Datastore.ServiceKey
	}
	c.Relay.Mode = strings.ToLower(c.Relay.Mode)
	c.Datastore.Driver = strings.ToLower(c.Datastore.Driver)
}

// ServiceCredential parses the push service account blob.
func (c *Config) ServiceCredential() (*models.ServiceCredential, error) {
	if c.Push.ServiceAccount == "" {
		return nil, fmt.Errorf("%w: missing push.service_account", models.ErrConfiguration)
	}
	cred, err := models.ParseServiceCredential([]byte(c.Push.ServiceAccount))
	if err != nil {
		return nil, fmt.Errorf("%w: push.service_account: %v", models.ErrConfiguration, err)
	}
	return cred, nil
}

// RequireAnalyzer checks what the event-driven alert pipeline needs.
func (c *Config) RequireAnalyzer() error {
	missing := missingKeys(map[string]string{
		"genai.api_key": c.GenAI.APIKey,
	})
	switch c.Relay.Mode {
	case RelayHTTP:
		missing = append(missing, missingKeys(map[string]string{
			"relay.url":         c.Relay.URL,
			"relay.service_key": c.Relay.ServiceKey,
		})...)
	case RelayNATS:
		if !c.NATS.Enabled {
			missing = append(missing, "nats.enabled")
		}
	case RelayDirect:
		missing = append(missing, missingKeys(map[string]string{
			"push.service_account": c.Push.ServiceAccount,
		})...)
	default:
		return fmt.Errorf("%w: unknown relay.mode %q", models.ErrConfiguration, c.Relay.Mode)
	}
	return missingError(missing)
}

// RequirePush checks what the dispatch endpoint needs.
func (c *Config) RequirePush() error {
	return missingError(missingKeys(map[string]string{
		"push.service_account": c.Push.ServiceAccount,
		"relay.service_key":    c.Relay.ServiceKey,
	}))
}

// RequireReport checks what the pull-based health report needs.
func (c *Config) RequireReport() error {
	var missing []string
	switch c.Datastore.Driver {
	case DriverREST:
		missing = missingKeys(map[string]string{
			"datastore.url":         c.Datastore.URL,
			"datastore.service_key": c.Datastore.ServiceKey,
		})
	case DriverPostgres:
		missing = missingKeys(map[string]string{
			"datastore.postgres.host": c.Datastore.Postgres.Host,
		})
	default:
		return fmt.Errorf("%w: unknown datastore.driver %q", models.ErrConfiguration, c.Datastore.Driver)
	}
	if c.Auth.JWTSecret == "" && c.Auth.URL == "" {
		missing = append(missing, "auth.jwt_secret|auth.url")
	}
	return missingError(missing)
}

func missingKeys(values map[string]string) []string {
	var missing []string
	for key, val := range values {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: missing %s", models.ErrConfiguration, strings.Join(missing, ", "))
}
