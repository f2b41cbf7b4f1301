package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewCreditPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// DefaultSchoolID identifies the tenant whose permission records act as
	// the platform-wide default tier.
	DefaultSchoolID int64

	// AdminAPISecret gates the super-admin bulk endpoints. Empty disables them.
	AdminAPISecret string

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

	Payment   PaymentConfig
	RateLimit RateLimitConfig
}

// PaymentConfig selects and configures the external payment gateway used for
// credit purchases. The gateway only deposits credits; it never debits.
type PaymentConfig struct {
	Provider          string
	MidtransServerKey string
	MidtransSnapURL   string
	CallbackBaseURL   string
}

// RateLimitConfig configures the redis-backed generation rate limiter.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GenerateSchoolRate    float64
	GenerateSchoolBurst   int
	GenerateEndpointRate  float64
	GenerateEndpointBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getenv("APP_SERVICE", "kertas"),
		AppVersion:      getenv("APP_VERSION", "0.1.0"),
		Environment:     getenv("ENVIRONMENT", "development"),
		DefaultSchoolID: getenvInt64("DEFAULT_SCHOOL", 1),
		AdminAPISecret:  strings.TrimSpace(getenv("ADMIN_API_SECRET", "")),
		OTLPEndpoint:    getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "kertas"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Payment: PaymentConfig{
			Provider:          strings.ToLower(getenv("PAYMENT_PROVIDER", "manual")),
			MidtransServerKey: strings.TrimSpace(getenv("MIDTRANS_SERVER_KEY", "")),
			MidtransSnapURL:   getenv("MIDTRANS_SNAP_URL", "https://app.sandbox.midtrans.com/snap/v1/transactions"),
			CallbackBaseURL:   strings.TrimSpace(getenv("PAYMENT_CALLBACK_BASE_URL", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:             strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", "")),
			RedisPassword:         getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:               getenvInt("RATE_LIMIT_REDIS_DB", 0),
			GenerateSchoolRate:    getenvFloat("RATE_LIMIT_GENERATE_SCHOOL_RATE", 10),
			GenerateSchoolBurst:   getenvInt("RATE_LIMIT_GENERATE_SCHOOL_BURST", 20),
			GenerateEndpointRate:  getenvFloat("RATE_LIMIT_GENERATE_ENDPOINT_RATE", 200),
			GenerateEndpointBurst: getenvInt("RATE_LIMIT_GENERATE_ENDPOINT_BURST", 400),
		},
	}

	return cfg
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
