package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	S3       S3Config
	Jobs     JobsConfig
	Receipt  ReceiptConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type DatabaseConfig struct {
	Driver       string // sqlite or postgres
	Path         string
	PostgresDSN  string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderEvents string
	KOTEvents   string
	BillEvents  string
}

type AuthConfig struct {
	JWTSecret          string
	SessionTTL         time.Duration
	LoginRatePerMinute int
	LoginBurst         int
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

type JobsConfig struct {
	Enabled           bool
	SessionPurgeSpec  string
	HeldBillPurgeSpec string
	DailySummarySpec  string
	LimiterSweepSpec  string
	HeldBillTTL       time.Duration
	SessionRetention  time.Duration
}

type ReceiptConfig struct {
	PublicBaseURL string
	Secret        string
}

// Load reads configuration from the environment, loading a .env file first when present.
func Load() *Config {
	_ = godotenv.Load()

	driver := strings.ToLower(getEnv("DB_DRIVER", "sqlite"))
	maxOpen := getEnvInt("DB_MAX_OPEN_CONNS", 25)
	if driver == "sqlite" {
		// SQLite serialises writers; one connection keeps pragmas and transactions coherent.
		maxOpen = 1
	}

	return &Config{
		Env: getEnv("GO_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", ":8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0, // SSE streams stay open
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:       driver,
			Path:         getEnv("DB_PATH", "pos.db"),
			PostgresDSN:  getEnv("POSTGRES_DSN", ""),
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
			MaxOpenConns: maxOpen,
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", maxOpen),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 0)) * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "pos-kot-printer"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				OrderEvents: getEnv("KAFKA_TOPIC_ORDERS", "pos.order.events"),
				KOTEvents:   getEnv("KAFKA_TOPIC_KOTS", "pos.kot.events"),
				BillEvents:  getEnv("KAFKA_TOPIC_BILLS", "pos.bill.events"),
			},
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			SessionTTL:         getEnvDuration("SESSION_TTL", 12*time.Hour),
			LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 5),
			LoginBurst:         getEnvInt("LOGIN_BURST", 5),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:      strings.ToLower(getEnv("CURRENCY", "usd")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Jobs: JobsConfig{
			Enabled:           getEnvBool("JOBS_ENABLED", true),
			SessionPurgeSpec:  getEnv("JOB_SESSION_PURGE", "@every 15m"),
			HeldBillPurgeSpec: getEnv("JOB_HELD_BILL_PURGE", "@hourly"),
			DailySummarySpec:  getEnv("JOB_DAILY_SUMMARY", "55 23 * * *"),
			LimiterSweepSpec:  getEnv("JOB_LIMITER_SWEEP", "@every 10m"),
			HeldBillTTL:       getEnvDuration("HELD_BILL_TTL", 24*time.Hour),
			SessionRetention:  getEnvDuration("SESSION_RETENTION", 24*time.Hour),
		},
		Receipt: ReceiptConfig{
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			Secret:        getEnv("RECEIPT_SECRET", ""),
		},
	}
}

// Validate checks the values that cannot be defaulted safely.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Receipt.Secret == "" {
		c.Receipt.Secret = c.Auth.JWTSecret
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
