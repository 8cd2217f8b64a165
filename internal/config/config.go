package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/makeasinger/musicgen/internal/poller"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	OIDC      OIDCConfig
	RateLimit RateLimitConfig
	Suno      SunoConfig
	Poll      PollConfig
	Store     StoreConfig
	R2        R2Config
	Gateway   GatewayConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

// OIDCConfig points at the hosted identity provider whose JWKS signs
// access tokens.
type OIDCConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type RateLimitConfig struct {
	CreatePerMin int
	JobsPerHour  int
}

type SunoConfig struct {
	APIKey      string
	BaseURL     string
	CallbackURL string
	// RequestsPerSecond throttles outbound calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	DefaultModel      string
	Timeout           int // seconds
}

// PollConfig is the base polling policy of every adapter.
type PollConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	GrowthRate      float64
	// GrowthEvery overrides the per-feature cadence when non-zero.
	GrowthEvery int
	Progressive bool
	MaxAttempts int
}

// Options converts the section into poller options.
func (p PollConfig) Options() poller.Options {
	opts := poller.DefaultOptions()
	if p.InitialInterval > 0 {
		opts.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		opts.MaxInterval = p.MaxInterval
	}
	if p.GrowthRate > 0 {
		opts.GrowthRate = p.GrowthRate
	}
	opts.GrowthEvery = p.GrowthEvery
	opts.Progressive = p.Progressive
	if p.MaxAttempts >= 0 {
		opts.MaxAttempts = p.MaxAttempts
	}
	return opts
}

type StoreConfig struct {
	TTL time.Duration
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
	// Archive copies finished media into the bucket.
	Archive bool
}

type GatewayConfig struct {
	Enabled bool
	// Secret, when set, must be echoed by the gateway in X-Gateway-Secret.
	Secret string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("SUNO_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("OIDC_CLIENT_ID")
	readSecret("GATEWAY_SECRET")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	bindings := map[string]string{
		"server.port":              "SERVER_PORT",
		"server.env":               "SERVER_ENV",
		"server.log_level":         "LOG_LEVEL",
		"server.api_domain":        "API_DOMAIN",
		"redis.addr":               "REDIS_ADDR",
		"redis.password":           "REDIS_PASSWORD",
		"redis.db":                 "REDIS_DB",
		"jwt.secret":               "JWT_SECRET",
		"jwt.expiration":           "JWT_EXPIRATION",
		"oidc.domain":              "OIDC_DOMAIN",
		"oidc.client_id":           "OIDC_CLIENT_ID",
		"oidc.issuer":              "OIDC_ISSUER",
		"ratelimit.create_per_min": "RATELIMIT_CREATE_PER_MIN",
		"ratelimit.jobs_per_hour":  "RATELIMIT_JOBS_PER_HOUR",
		"suno.api_key":             "SUNO_API_KEY",
		"suno.base_url":            "SUNO_BASE_URL",
		"suno.callback_url":        "SUNO_CALLBACK_URL",
		"suno.requests_per_second": "SUNO_REQUESTS_PER_SECOND",
		"suno.burst":               "SUNO_BURST",
		"suno.default_model":       "SUNO_DEFAULT_MODEL",
		"suno.timeout":             "SUNO_TIMEOUT",
		"poll.initial_interval":    "POLL_INITIAL_INTERVAL",
		"poll.max_interval":        "POLL_MAX_INTERVAL",
		"poll.growth_rate":         "POLL_GROWTH_RATE",
		"poll.growth_every":        "POLL_GROWTH_EVERY",
		"poll.progressive":         "POLL_PROGRESSIVE",
		"poll.max_attempts":        "POLL_MAX_ATTEMPTS",
		"store.ttl":                "STORE_TTL",
		"r2.account_id":            "R2_ACCOUNT_ID",
		"r2.access_key_id":         "R2_ACCESS_KEY_ID",
		"r2.secret_access_key":     "R2_SECRET_ACCESS_KEY",
		"r2.bucket_name":           "R2_BUCKET_NAME",
		"r2.public_url":            "R2_PUBLIC_URL",
		"r2.archive":               "R2_ARCHIVE",
		"gateway.enabled":          "GATEWAY_ENABLED",
		"gateway.secret":           "GATEWAY_SECRET",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	// Defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24)
	v.SetDefault("ratelimit.create_per_min", 20)
	v.SetDefault("ratelimit.jobs_per_hour", 30)

	// Suno defaults
	v.SetDefault("suno.base_url", "https://api.sunoapi.org")
	v.SetDefault("suno.requests_per_second", 3)
	v.SetDefault("suno.burst", 5)
	v.SetDefault("suno.default_model", "V4_5")
	v.SetDefault("suno.timeout", 30)

	// Polling defaults
	v.SetDefault("poll.initial_interval", poller.DefaultInitialInterval)
	v.SetDefault("poll.max_interval", poller.DefaultMaxInterval)
	v.SetDefault("poll.growth_rate", poller.DefaultGrowthRate)
	v.SetDefault("poll.growth_every", 0)
	v.SetDefault("poll.progressive", true)
	v.SetDefault("poll.max_attempts", poller.DefaultMaxAttempts)

	v.SetDefault("store.ttl", 7*24*time.Hour)
	v.SetDefault("r2.archive", true)
	v.SetDefault("gateway.enabled", false)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			ApiDomain: v.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("jwt.secret"),
			Expiration: v.GetInt("jwt.expiration"),
		},
		OIDC: OIDCConfig{
			Domain:   v.GetString("oidc.domain"),
			ClientID: v.GetString("oidc.client_id"),
			Issuer:   v.GetString("oidc.issuer"),
		},
		RateLimit: RateLimitConfig{
			CreatePerMin: v.GetInt("ratelimit.create_per_min"),
			JobsPerHour:  v.GetInt("ratelimit.jobs_per_hour"),
		},
		Suno: SunoConfig{
			APIKey:            v.GetString("suno.api_key"),
			BaseURL:           v.GetString("suno.base_url"),
			CallbackURL:       v.GetString("suno.callback_url"),
			RequestsPerSecond: v.GetFloat64("suno.requests_per_second"),
			Burst:             v.GetInt("suno.burst"),
			DefaultModel:      v.GetString("suno.default_model"),
			Timeout:           v.GetInt("suno.timeout"),
		},
		Poll: PollConfig{
			InitialInterval: v.GetDuration("poll.initial_interval"),
			MaxInterval:     v.GetDuration("poll.max_interval"),
			GrowthRate:      v.GetFloat64("poll.growth_rate"),
			GrowthEvery:     v.GetInt("poll.growth_every"),
			Progressive:     v.GetBool("poll.progressive"),
			MaxAttempts:     v.GetInt("poll.max_attempts"),
		},
		Store: StoreConfig{
			TTL: v.GetDuration("store.ttl"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
			Archive:         v.GetBool("r2.archive"),
		},
		Gateway: GatewayConfig{
			Enabled: v.GetBool("gateway.enabled"),
			Secret:  v.GetString("gateway.secret"),
		},
	}

	return cfg, nil
}
