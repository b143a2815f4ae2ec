package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "SOCIETY"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	HTTP      HTTPSettings      `mapstructure:"http"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Password  PasswordSettings  `mapstructure:"password"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// IsProduction reports whether the service runs with production safeguards.
func (s AppSettings) IsProduction() bool {
	return strings.EqualFold(s.Env, "production")
}

// HTTPSettings configures the route guard, the session cookie and CORS.
type HTTPSettings struct {
	AdminPrefix     string        `mapstructure:"admin_prefix"`
	DashboardPrefix string        `mapstructure:"dashboard_prefix"`
	LoginPath       string        `mapstructure:"login_path"`
	SessionCookie   string        `mapstructure:"session_cookie"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
	CookieDomain    string        `mapstructure:"cookie_domain"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the socket peer address is always the client IP.
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
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

// DSN renders a libpq style connection string.
func (s PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Database, s.SSLMode,
	)
}

// RedisSettings configures Redis connection and the user state cache.
type RedisSettings struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              int           `mapstructure:"db"`
	Password        string        `mapstructure:"password"`
	TLSEnabled      bool          `mapstructure:"tls_enabled"`
	UserStatePrefix string        `mapstructure:"user_state_prefix"`
	UserStateTTL    time.Duration `mapstructure:"user_state_ttl"`
	RateLimitPrefix string        `mapstructure:"rate_limit_prefix"`
}

// KafkaSettings configures the domain event producer. Empty Brokers disables it.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures rate limiting windows and max attempts per endpoint
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

// PasswordSettings configures password rules and generated temporary passwords.
type PasswordSettings struct {
	MinLength        int `mapstructure:"min_length"`
	MinStrengthScore int `mapstructure:"min_strength_score"`
	TemporaryLength  int `mapstructure:"temporary_length"`
}

type JWTSettings struct {
	KeyDirectory string        `mapstructure:"key_directory"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

type TelemetrySettings struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

var envKeys = []string{
	"app.name",
	"app.env",
	"app.host",
	"app.port",
	"http.admin_prefix",
	"http.dashboard_prefix",
	"http.login_path",
	"http.session_cookie",
	"http.cookie_secure",
	"http.cookie_domain",
	"http.allowed_origins",
	"http.trusted_proxies",
	"http.read_timeout",
	"http.write_timeout",
	"http.shutdown_timeout",
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
	"redis.user_state_prefix",
	"redis.user_state_ttl",
	"redis.rate_limit_prefix",
	"kafka.brokers",
	"kafka.topic_prefix",
	"kafka.async",
	"jwt.key_directory",
	"jwt.session_ttl",
	"telemetry.enabled",
	"telemetry.otlp_endpoint",
	"telemetry.service_name",
	"telemetry.sampling_rate",
	"rate_limit.window_duration",
	"rate_limit.login_max_attempts",
	"rate_limit.register_max_attempts",
	"argon2.memory",
	"argon2.iterations",
	"argon2.parallelism",
	"argon2.salt_length",
	"argon2.key_length",
	"password.min_length",
	"password.min_strength_score",
	"password.temporary_length",
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, envKeys); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.HTTP.AllowedOrigins = splitList(cfg.HTTP.AllowedOrigins)
	cfg.HTTP.TrustedProxies = splitList(cfg.HTTP.TrustedProxies)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.App.Port <= 0 {
		errs = append(errs, errors.New("app.port must be positive"))
	}
	if !strings.HasPrefix(c.HTTP.AdminPrefix, "/") || !strings.HasPrefix(c.HTTP.DashboardPrefix, "/") {
		errs = append(errs, errors.New("http.admin_prefix and http.dashboard_prefix must start with /"))
	}
	for _, proxy := range c.HTTP.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("http.trusted_proxies: %q is not an IP or CIDR", proxy))
		}
	}
	if c.JWT.SessionTTL <= 0 {
		errs = append(errs, errors.New("jwt.session_ttl must be positive"))
	}
	if c.Redis.UserStateTTL <= 0 {
		errs = append(errs, errors.New("redis.user_state_ttl must be positive"))
	}
	if c.Password.MinLength < 8 {
		errs = append(errs, errors.New("password.min_length must be at least 8"))
	}
	if c.Password.TemporaryLength < c.Password.MinLength {
		errs = append(errs, errors.New("password.temporary_length must not be shorter than password.min_length"))
	}
	if c.App.IsProduction() && strings.TrimSpace(c.JWT.KeyDirectory) == "" {
		errs = append(errs, errors.New("jwt.key_directory is required in production"))
	}
	return errors.Join(errs...)
}

func validProxy(value string) bool {
	if _, err := netip.ParsePrefix(value); err == nil {
		return true
	}
	_, err := netip.ParseAddr(value)
	return err == nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "society-portal")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("http.admin_prefix", "/api/v1/admin")
	v.SetDefault("http.dashboard_prefix", "/api/v1/dashboard")
	v.SetDefault("http.login_path", "/login")
	v.SetDefault("http.session_cookie", "society_session")
	v.SetDefault("http.cookie_secure", false)
	v.SetDefault("http.cookie_domain", "")
	v.SetDefault("http.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("http.trusted_proxies", []string{})
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "society")
	v.SetDefault("postgres.password", "society_password")
	v.SetDefault("postgres.database", "society")
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
	v.SetDefault("redis.user_state_prefix", "society:user_state")
	v.SetDefault("redis.user_state_ttl", "1m")
	v.SetDefault("redis.rate_limit_prefix", "society:rate_limit")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "society")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.key_directory", "")
	v.SetDefault("jwt.session_ttl", "12h")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.service_name", "society-portal")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.register_max_attempts", 3)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.min_strength_score", 0)
	v.SetDefault("password.temporary_length", 14)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// splitList accepts both proper lists and a single comma separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
