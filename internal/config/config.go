package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewBudgetRulesHolder),
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	AuthCookieSecure bool
	AuthSessionTTL   time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig
	Scheduler SchedulerConfig

	CORSAllowedOrigins []string
	DefaultCurrency    string
	BudgetRulesPath    string
	SeedDemo           bool
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LoginRate     float64
	LoginBurst    int
}

type SchedulerConfig struct {
	Enabled          bool
	RunInterval      time.Duration
	SessionRetention time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	return Config{
		AppName:           getenv("APP_SERVICE", "quoteflow"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AuthCookieSecure:  authCookieSecure,
		AuthSessionTTL:    time.Duration(getenvInt("AUTH_SESSION_TTL_HOURS", 24)) * time.Hour,
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "quoteflow"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379")),
			RedisPassword: strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			LoginRate:     getenvFloat("RATE_LIMIT_LOGIN_RATE", 0.2),
			LoginBurst:    getenvInt("RATE_LIMIT_LOGIN_BURST", 5),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getenvBool("SCHEDULER_ENABLED", true),
			RunInterval:      time.Duration(getenvInt("SCHEDULER_INTERVAL_SECONDS", 600)) * time.Second,
			SessionRetention: time.Duration(getenvInt("SESSION_RETENTION_HOURS", 168)) * time.Hour,
		},
		CORSAllowedOrigins: parseList(getenv("CORS_ALLOWED_ORIGINS", "*")),
		DefaultCurrency:    strings.ToUpper(strings.TrimSpace(getenv("DEFAULT_CURRENCY", "BRL"))),
		BudgetRulesPath:    strings.TrimSpace(getenv("BUDGET_RULES_PATH", "")),
		SeedDemo:           getenvBool("SEED_DEMO", false),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
