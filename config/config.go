package config

import (
	"os"
	"strconv"
	"time"
)

// RoleLimits is the per-role policy table. Every money-moving service reads
// its caps from here; nothing re-declares limit numbers inline.
type RoleLimits struct {
	MaxBet        float64
	DailyLimit    float64
	MinDeposit    float64
	MaxDeposit    float64
	MinWithdrawal float64
	MaxWithdrawal float64
}

// ChipPackage is a purchasable credit bundle resolved from checkout session
// metadata.
type ChipPackage struct {
	Code  string
	Chips float64
	Price float64
}

type Config struct {
	Host string
	Port string

	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBAutoMigrate bool

	RedisAddr    string
	OddsCacheTTL time.Duration

	CheckoutAPIURL     string
	CheckoutAPIKey     string
	GatewaySuccessRate float64

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string

	OddsFeedURL          string
	OddsFeedKey          string
	OddsPollInterval     time.Duration
	VolumeAdjustInterval time.Duration

	SessionTTL     time.Duration
	BetGraceWindow time.Duration
	LiveWindow     time.Duration

	Limits       map[string]RoleLimits
	ChipPackages map[string]ChipPackage
}

// Load reads the environment once and returns an immutable config. Services
// receive it through their constructors; nothing reads the environment after
// startup.
func Load() *Config {
	cfg := &Config{
		Host: envStr("HOST", "127.0.0.1"),
		Port: envStr("PORT", "3000"),

		DBHost:        envStr("DB_HOST", "127.0.0.1"),
		DBPort:        envStr("DB_PORT", "5432"),
		DBUser:        envStr("DB_USER", "betline"),
		DBPassword:    envStr("DB_PASSWORD", ""),
		DBName:        envStr("DB_NAME", "betline"),
		DBSSLMode:     envStr("DB_SSLMODE", "disable"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", true),

		RedisAddr:    envStr("REDIS_ADDR", ""),
		OddsCacheTTL: envDuration("ODDS_CACHE_TTL", 30*time.Second),

		CheckoutAPIURL:     envStr("CHECKOUT_API_URL", ""),
		CheckoutAPIKey:     envStr("CHECKOUT_API_KEY", ""),
		GatewaySuccessRate: envFloat("GATEWAY_SUCCESS_RATE", 0.95),

		EmailAPIURL: envStr("EMAIL_API_URL", ""),
		EmailAPIKey: envStr("EMAIL_API_KEY", ""),
		EmailFrom:   envStr("EMAIL_FROM", "no-reply@betline.local"),

		OddsFeedURL:          envStr("ODDS_FEED_URL", ""),
		OddsFeedKey:          envStr("ODDS_FEED_KEY", ""),
		OddsPollInterval:     envDuration("ODDS_POLL_INTERVAL", 30*time.Second),
		VolumeAdjustInterval: envDuration("VOLUME_ADJUST_INTERVAL", 2*time.Minute),

		SessionTTL:     envDuration("SESSION_TTL", 24*time.Hour),
		BetGraceWindow: envDuration("BET_GRACE_WINDOW", 5*time.Minute),
		LiveWindow:     envDuration("LIVE_WINDOW", 3*time.Hour),

		Limits: map[string]RoleLimits{
			"regular": {
				MaxBet:        envFloat("LIMIT_REGULAR_MAX_BET", 1_000),
				DailyLimit:    envFloat("LIMIT_REGULAR_DAILY", 5_000),
				MinDeposit:    envFloat("LIMIT_REGULAR_MIN_DEPOSIT", 10),
				MaxDeposit:    envFloat("LIMIT_REGULAR_MAX_DEPOSIT", 10_000),
				MinWithdrawal: envFloat("LIMIT_REGULAR_MIN_WITHDRAWAL", 20),
				MaxWithdrawal: envFloat("LIMIT_REGULAR_MAX_WITHDRAWAL", 5_000),
			},
			"premium": {
				MaxBet:        envFloat("LIMIT_PREMIUM_MAX_BET", 5_000),
				DailyLimit:    envFloat("LIMIT_PREMIUM_DAILY", 25_000),
				MinDeposit:    envFloat("LIMIT_PREMIUM_MIN_DEPOSIT", 10),
				MaxDeposit:    envFloat("LIMIT_PREMIUM_MAX_DEPOSIT", 50_000),
				MinWithdrawal: envFloat("LIMIT_PREMIUM_MIN_WITHDRAWAL", 20),
				MaxWithdrawal: envFloat("LIMIT_PREMIUM_MAX_WITHDRAWAL", 25_000),
			},
			"vip": {
				MaxBet:        envFloat("LIMIT_VIP_MAX_BET", 25_000),
				DailyLimit:    envFloat("LIMIT_VIP_DAILY", 100_000),
				MinDeposit:    envFloat("LIMIT_VIP_MIN_DEPOSIT", 10),
				MaxDeposit:    envFloat("LIMIT_VIP_MAX_DEPOSIT", 250_000),
				MinWithdrawal: envFloat("LIMIT_VIP_MIN_WITHDRAWAL", 20),
				MaxWithdrawal: envFloat("LIMIT_VIP_MAX_WITHDRAWAL", 100_000),
			},
		},

		ChipPackages: map[string]ChipPackage{
			"starter": {Code: "starter", Chips: 1_000, Price: 9.99},
			"value":   {Code: "value", Chips: 5_500, Price: 49.99},
			"high":    {Code: "high", Chips: 12_000, Price: 99.99},
		},
	}
	return cfg
}

// LimitsFor returns the policy row for a role. Admins and unknown roles fall
// back to the vip and regular rows respectively.
func (c *Config) LimitsFor(role string) RoleLimits {
	if l, ok := c.Limits[role]; ok {
		return l
	}
	if role == "admin" {
		return c.Limits["vip"]
	}
	return c.Limits["regular"]
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
