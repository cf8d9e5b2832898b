package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the reconciliation job reads. It is built once in
// main and passed by reference; nothing re-reads the environment after load.
type Config struct {
	Env string // "production" enables JSON logs and non-zero exits on failure

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	RedisAddr     string // optional; empty disables the run lock
	RedisPassword string

	BookingAPIURL string
	BookingAPIKey string

	// Candidate filter: members holding this membership with exactly one visit.
	MembershipID int64

	// Reward purchase parameters.
	RewardProductID   int64
	LocationMap       map[string]int64
	DefaultLocationID int64

	// Request executor budgets, per request class.
	QueryTimeout    time.Duration
	ReportTimeout   time.Duration
	PurchaseTimeout time.Duration
	HTTPMaxAttempts int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration

	// Report lifecycle budgets.
	PollInterval       time.Duration
	PollMaxAttempts    int
	ReportLookbackDays int

	PageSize  int
	PairDelay time.Duration

	// Zero means run once and exit; otherwise loop on this interval.
	RunInterval time.Duration
	RunLockTTL  time.Duration

	TelegramBotToken string
	TelegramChatID   int64

	MetricsAddr string // optional; empty disables the /metrics listener
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Env: getEnv("APP_ENV", "development"),

		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "referral_rewards"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		BookingAPIURL: getEnv("BOOKING_API_URL", ""),
		BookingAPIKey: getEnv("BOOKING_API_KEY", ""),

		MembershipID:      getEnvAsInt64("MEMBERSHIP_ID", 0),
		RewardProductID:   getEnvAsInt64("REWARD_PRODUCT_ID", 0),
		LocationMap:       parseLocationMap(getEnv("LOCATION_MAP", "")),
		DefaultLocationID: getEnvAsInt64("DEFAULT_LOCATION_ID", 0),

		QueryTimeout:    getEnvAsDuration("QUERY_TIMEOUT", 15*time.Second),
		ReportTimeout:   getEnvAsDuration("REPORT_TIMEOUT", 30*time.Second),
		PurchaseTimeout: getEnvAsDuration("PURCHASE_TIMEOUT", 20*time.Second),
		HTTPMaxAttempts: getEnvAsInt("HTTP_MAX_ATTEMPTS", 5),
		RetryBaseDelay:  getEnvAsDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		RetryMaxDelay:   getEnvAsDuration("RETRY_MAX_DELAY", 8*time.Second),

		PollInterval:       getEnvAsDuration("POLL_INTERVAL", 3*time.Second),
		PollMaxAttempts:    getEnvAsInt("POLL_MAX_ATTEMPTS", 100),
		ReportLookbackDays: getEnvAsInt("REPORT_LOOKBACK_DAYS", 30),

		PageSize:  getEnvAsInt("PAGE_SIZE", 100),
		PairDelay: getEnvAsDuration("PAIR_DELAY", 250*time.Millisecond),

		RunInterval: getEnvAsDuration("RUN_INTERVAL", 0),
		RunLockTTL:  getEnvAsDuration("RUN_LOCK_TTL", 15*time.Minute),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnvAsInt64("TELEGRAM_CHAT_ID", 0),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}
}

// Validate reports every missing required setting at once. A failure here is
// run-fatal: the job refuses to start rather than reconcile with partial config.
func (c *Config) Validate() error {
	var missing []string
	if c.BookingAPIURL == "" {
		missing = append(missing, "BOOKING_API_URL")
	}
	if c.BookingAPIKey == "" {
		missing = append(missing, "BOOKING_API_KEY")
	}
	if c.MembershipID == 0 {
		missing = append(missing, "MEMBERSHIP_ID")
	}
	if c.RewardProductID == 0 {
		missing = append(missing, "REWARD_PRODUCT_ID")
	}
	if c.DefaultLocationID == 0 && len(c.LocationMap) == 0 {
		missing = append(missing, "DEFAULT_LOCATION_ID or LOCATION_MAP")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Production reports whether failures should terminate with a non-zero exit.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// parseLocationMap reads "Name=ID,Other Name=ID" pairs. Malformed entries are
// skipped with a log line rather than failing the whole load.
func parseLocationMap(raw string) map[string]int64 {
	m := make(map[string]int64)
	if raw == "" {
		return m
	}
	for _, pair := range strings.Split(raw, ",") {
		name, idStr, ok := strings.Cut(pair, "=")
		if !ok {
			log.Printf("Skipping malformed LOCATION_MAP entry: %q", pair)
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			log.Printf("Skipping LOCATION_MAP entry with bad id: %q", pair)
			continue
		}
		m[strings.TrimSpace(name)] = id
	}
	return m
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
