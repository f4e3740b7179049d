package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	SMTP      SMTPSettings      `mapstructure:"smtp"`
	SMS       SMSSettings       `mapstructure:"sms"`
	Auth      AuthSettings      `mapstructure:"auth"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// PortalURL is the public admin portal origin used when composing
	// onboarding invite links.
	PortalURL string `mapstructure:"portal_url"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection backing the rate-limit store.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the lifecycle-event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// SMTPSettings configures the transactional mailer.
type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
}

// SMSSettings configures the outbound text-message gateway. An empty endpoint
// selects the logging channel instead of a real gateway.
type SMSSettings struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Sender   string        `mapstructure:"sender"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthSettings configures the credential verification state machine.
type AuthSettings struct {
	PasswordMaxAttempts  int           `mapstructure:"password_max_attempts"`
	PasswordLockDuration time.Duration `mapstructure:"password_lock_duration"`
	CodeMaxAttempts      int           `mapstructure:"code_max_attempts"`
	CodeLockDuration     time.Duration `mapstructure:"code_lock_duration"`
	CodeTTL              time.Duration `mapstructure:"code_ttl"`
	CodeSendCooldown     time.Duration `mapstructure:"code_send_cooldown"`
	AdminSessionTTL      time.Duration `mapstructure:"admin_session_ttl"`
	ManagerSessionTTL    time.Duration `mapstructure:"manager_session_ttl"`
	ResetCodeTTL         time.Duration `mapstructure:"reset_code_ttl"`
	OnboardTokenTTL      time.Duration `mapstructure:"onboard_token_ttl"`
	TOTPIssuer           string        `mapstructure:"totp_issuer"`
}

// RateLimitSettings configures per-endpoint sliding-window limits.
type RateLimitSettings struct {
	WindowDuration   time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts int           `mapstructure:"login_max_attempts"`
	ResetMaxAttempts int           `mapstructure:"reset_max_attempts"`
}

// CORSSettings lists origins permitted by the browser-facing endpoints.
type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("VITALINK")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.portal_url",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"smtp.host",
		"smtp.port",
		"smtp.user",
		"smtp.password",
		"smtp.from",
		"smtp.from_name",
		"sms.endpoint",
		"sms.api_key",
		"sms.sender",
		"sms.timeout",
		"auth.password_max_attempts",
		"auth.password_lock_duration",
		"auth.code_max_attempts",
		"auth.code_lock_duration",
		"auth.code_ttl",
		"auth.code_send_cooldown",
		"auth.admin_session_ttl",
		"auth.manager_session_ttl",
		"auth.reset_code_ttl",
		"auth.onboard_token_ttl",
		"auth.totp_issuer",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.reset_max_attempts",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vitalink-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.portal_url", "https://myvitalink.app")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "vitalink")
	v.SetDefault("postgres.password", "vitalink_password")
	v.SetDefault("postgres.database", "vitalink")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "vitalink")
	v.SetDefault("kafka.async", true)

	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.user", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "support@myvitalink.app")
	v.SetDefault("smtp.from_name", "VitaLink Support")

	v.SetDefault("sms.endpoint", "")
	v.SetDefault("sms.api_key", "")
	v.SetDefault("sms.sender", "VitaLink")
	v.SetDefault("sms.timeout", "10s")

	v.SetDefault("auth.password_max_attempts", 5)
	v.SetDefault("auth.password_lock_duration", "15m")
	v.SetDefault("auth.code_max_attempts", 5)
	v.SetDefault("auth.code_lock_duration", "30m")
	v.SetDefault("auth.code_ttl", "5m")
	v.SetDefault("auth.code_send_cooldown", "60s")
	v.SetDefault("auth.admin_session_ttl", "8h")
	v.SetDefault("auth.manager_session_ttl", "168h")
	v.SetDefault("auth.reset_code_ttl", "20m")
	v.SetDefault("auth.onboard_token_ttl", "1h")
	v.SetDefault("auth.totp_issuer", "VitaLink Admin")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 10)
	v.SetDefault("rate_limit.reset_max_attempts", 3)

	v.SetDefault("cors.allowed_origins", []string{"https://myvitalink.app"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "VITALINK_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
