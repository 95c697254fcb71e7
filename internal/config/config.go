package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/foodhub-golang/internal/ledger"
	"github.com/01moynul/foodhub-golang/internal/ratelimit"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is everything the API process reads from the environment.
type Config struct {
	Port string `validate:"required,numeric"`

	DBDSNPrimary  string `validate:"required"`
	DBDSNReadOnly string

	JWTSecret string        `validate:"required,min=16"`
	JWTTTL    time.Duration `validate:"gt=0"`

	RedisAddr      string
	RedisPassword  string
	SettlementTTL  time.Duration `validate:"gt=0"`
	KafkaBroker    string
	KafkaTopic     string `validate:"required_with=KafkaBroker"`
	GeminiAPIKey   string
	GeminiModel    string
	BaseURL        string   `validate:"required,url"`
	AllowedOrigins []string `validate:"min=1,dive,required"`

	WorkerInterval     time.Duration `validate:"gt=0"`
	DefaultDeliveryFee decimal.Decimal

	Fees      ledger.FeeSchedule
	RateLimit ratelimit.Policy
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBDSNPrimary:   getEnv("DB_DSN_PRIMARY", "root:root@tcp(127.0.0.1:3306)/foodhub?parseTime=true"),
		DBDSNReadOnly:  os.Getenv("DB_DSN_READONLY"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		KafkaBroker:    os.Getenv("KAFKA_BROKER"),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "order-lifecycle"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		AllowedOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SettlementTTL, err = getDuration("SETTLEMENT_MARKER_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.WorkerInterval, err = getDuration("WORKER_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.DefaultDeliveryFee, err = getDecimal("DEFAULT_DELIVERY_FEE", "10"); err != nil {
		return nil, err
	}

	if cfg.Fees, err = loadFees(); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = loadRateLimit(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate runs the struct tags and the cross-field money rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Fees.Validate(); err != nil {
		return err
	}
	if c.DefaultDeliveryFee.IsNegative() {
		return fmt.Errorf("invalid config: DEFAULT_DELIVERY_FEE is negative")
	}
	return nil
}

func loadFees() (ledger.FeeSchedule, error) {
	var f ledger.FeeSchedule
	var err error
	if f.PerItem, err = getDecimal("SERVICE_FEE_PER_ITEM", "2"); err != nil {
		return f, err
	}
	if f.PlatformShare, err = getDecimal("SERVICE_FEE_PLATFORM_SHARE", "1"); err != nil {
		return f, err
	}
	if f.SupervisorShare, err = getDecimal("SERVICE_FEE_SUPERVISOR_SHARE", "1"); err != nil {
		return f, err
	}
	if f.CommissionPerOrder, err = getDecimal("COMMISSION_PER_ORDER", "1"); err != nil {
		return f, err
	}
	return f, nil
}

func loadRateLimit() (ratelimit.Policy, error) {
	p := ratelimit.DefaultPolicy()
	var err error
	if p.MaxLoginAttempts, err = getInt("MAX_LOGIN_ATTEMPTS", p.MaxLoginAttempts); err != nil {
		return p, err
	}
	if p.AttemptWindow, err = getDuration("ATTEMPT_WINDOW", p.AttemptWindow); err != nil {
		return p, err
	}
	if p.LockoutDuration, err = getDuration("LOCKOUT_DURATION", p.LockoutDuration); err != nil {
		return p, err
	}
	return p, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
