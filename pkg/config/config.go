package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Mongo     MongoConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Stripe    StripeConfig
	Email     EmailConfig
	Chat      ChatConfig
}

type ServerConfig struct {
	Port           string
	NotifyPort     string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxy bool
}

type MongoConfig struct {
	URI      string
	Database string
	User     string
	Password string
}

// DatabaseConfig is the Postgres pool that backs rate limiting.
// An empty URL disables the limiter.
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type NATSConfig struct {
	URL   string
	Queue string
}

type AuthConfig struct {
	JWTSecret      string
	SessionTTL     time.Duration
	GuestCookieTTL time.Duration
	OTPTTL         time.Duration
	OTPCooldown    time.Duration
	SecureCookies  bool
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type StripeConfig struct {
	SecretKey       string
	DefaultCurrency string
}

type EmailConfig struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	SMTPUseTLS    bool
	MailerSendKey string
	FromName      string
	DevMode       bool // print emails to logs instead of sending
}

type ChatConfig struct {
	HistoryLimit     int
	MaxMessageLength int
	MaxEntryLength   int

	// GeminiAPIKey switches chat replies to the model; the FAQ stays as fallback.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiTimeout time.Duration
}

func Load() *Config {
	// Missing .env is fine; real deployments use the process environment.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			NotifyPort:     getEnv("NOTIFY_PORT", "8086"),
			Env:            getEnv("APP_ENV", "development"),
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TrustProxy:     getBool("TRUST_PROXY", false),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "zayna"),
			User:     getEnv("MONGO_USER", ""),
			Password: getEnv("MONGO_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			MaxConns:    getInt("DB_MAX_CONNS", 10),
			MinConns:    getInt("DB_MIN_CONNS", 1),
			MaxLifetime: getDuration("DB_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:   getEnv("NATS_URL", ""),
			Queue: getEnv("NATS_QUEUE", "notify"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("JWT_SECRET", "dev-only-secret-change-in-prod"),
			SessionTTL:     getDuration("SESSION_TTL", 30*24*time.Hour),
			GuestCookieTTL: getDuration("GUEST_COOKIE_TTL", 7*24*time.Hour),
			OTPTTL:         getDuration("OTP_TTL", 5*time.Minute),
			OTPCooldown:    getDuration("OTP_COOLDOWN", 60*time.Second),
			SecureCookies:  getBool("SECURE_COOKIES", false),
		},
		RateLimit: RateLimitConfig{
			Requests: getInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Stripe: StripeConfig{
			SecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
			DefaultCurrency: getEnv("STRIPE_CURRENCY", "aed"),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", "localhost"),
			SMTPPort:      getInt("SMTP_PORT", 1025),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			SMTPFrom:      getEnv("SMTP_FROM", "noreply@zaynahotel.local"),
			SMTPUseTLS:    getBool("SMTP_USE_TLS", false),
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
			FromName:      getEnv("EMAIL_FROM_NAME", "Zayna Hotel"),
			DevMode:       getBool("EMAIL_DEV_MODE", true),
		},
		Chat: ChatConfig{
			HistoryLimit:     getInt("CHAT_HISTORY_LIMIT", 1000),
			MaxMessageLength: getInt("CHAT_MAX_MESSAGE_LENGTH", 1000),
			MaxEntryLength:   getInt("CHAT_MAX_ENTRY_LENGTH", 10000),
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			GeminiBaseURL:    getEnv("GEMINI_BASE_URL", ""),
			GeminiTimeout:    getDuration("GEMINI_TIMEOUT", 20*time.Second),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
