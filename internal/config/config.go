package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const minSecretLength = 32

var ErrInsecureSecret = errors.New("security.jwtsecret must be set to at least 32 bytes")

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory driver keeps everything
	// in-process and is refused in production.
	Driver string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Region         string
	PublicBaseURL  string
	MaxUploadBytes int64
}

type SecurityConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	Revocation bool
}

type RateLimitConfig struct {
	Enabled       bool
	Backend       string
	Window        time.Duration
	Limit         int
	SweepInterval time.Duration
}

type LoginThrottleConfig struct {
	Rate    float64
	Burst   int
	MaxKeys int
}

type CORSConfig struct {
	AllowOrigins []string
}

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	MaxDeliveries int64
	CleanupAfter  time.Duration
}

type LoggingConfig struct {
	Level string
}

type MetricsConfig struct {
	Enabled bool
}

type AppConfig struct {
	Environment   string
	HTTP          HTTPConfig
	Database      DatabaseConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Storage       StorageConfig
	Security      SecurityConfig
	RateLimit     RateLimitConfig
	LoginThrottle LoginThrottleConfig
	CORS          CORSConfig
	Worker        WorkerConfig
	Logging       LoggingConfig
	Metrics       MetricsConfig
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects configurations the API must not start with.
func (c *AppConfig) Validate() error {
	if len(c.Security.JWTSecret) < minSecretLength {
		return ErrInsecureSecret
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required when database.driver is postgres")
		}
	case "memory":
		if c.IsProduction() {
			return errors.New("database.driver memory is not allowed in production")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("ratelimit.backend redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("unknown ratelimit.backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Limit <= 0 {
		return errors.New("ratelimit.window and ratelimit.limit must be positive")
	}
	return nil
}

// Load reads config.yaml (optional) and REALTYHUB_* environment variables.
func Load() (*AppConfig, error) {
	return LoadWith(viper.New())
}

func LoadWith(v *viper.Viper) (*AppConfig, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("REALTYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORS.AllowOrigins = compact(cfg.CORS.AllowOrigins)
	return &cfg, nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "30s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", "postgres")
	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.querytimeout", "5s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "property-images")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.maxuploadbytes", 10<<20)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.tokenttl", "24h")
	v.SetDefault("security.revocation", false)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.window", "15m")
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.sweepinterval", "1m")

	v.SetDefault("loginthrottle.rate", 0.2) // one attempt every 5s sustained
	v.SetDefault("loginthrottle.burst", 5)
	v.SetDefault("loginthrottle.maxkeys", 10000)

	v.SetDefault("cors.alloworigins", []string{})

	v.SetDefault("worker.stream", "realtyhub:tasks")
	v.SetDefault("worker.group", "realtyhub-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.maxdeliveries", 5)
	v.SetDefault("worker.cleanupafter", "24h")

	v.SetDefault("logging.level", "")
	v.SetDefault("metrics.enabled", true)
}
