package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	OracleEtherscan = "etherscan"
	OracleRPC       = "rpc"
)

type Config struct {
	BotToken string `validate:"required"`

	WalletAddress string `validate:"required,eth_addr"`
	MonthlyPrice  decimal.Decimal
	YearlyPrice   decimal.Decimal
	ChainID       *big.Int `validate:"required"`
	NetworkName   string

	OracleBackend   string `validate:"oneof=etherscan rpc"`
	EtherscanAPIURL string `validate:"omitempty,url"`
	EtherscanAPIKey string
	RPCURL          string        `validate:"required_if=OracleBackend rpc"`
	OracleTimeout   time.Duration `validate:"gt=0"`

	DatabaseURL string
	DBUser      string
	DBPassword  string
	DBName      string
	DBHost      string
	DBPort      string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	NoticeDedup   bool

	ScheduleCron string `validate:"required"`

	HTTPAddr            string
	MetricsAllowedCIDRs []string `validate:"dive,cidr"`

	LogLevel  string
	LogFormat string
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	cfg := &Config{
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		WalletAddress:   getEnv("WALLET_ADDRESS", ""),
		NetworkName:     getEnv("NETWORK_NAME", "Sepolia"),
		OracleBackend:   strings.ToLower(getEnv("ORACLE_BACKEND", OracleEtherscan)),
		EtherscanAPIURL: getEnv("ETHERSCAN_API_URL", "https://api-sepolia.etherscan.io/api"),
		EtherscanAPIKey: getEnv("ETHERSCAN_API_KEY", ""),
		RPCURL:          getEnv("RPC_URL", ""),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "cryptopay_bot"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		ScheduleCron:    getEnv("SCHEDULE_CRON", "0 0 * * *"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":9090"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.MonthlyPrice, err = parsePrice("MONTHLY_PRICE"); err != nil {
		return nil, err
	}
	if cfg.YearlyPrice, err = parsePrice("YEARLY_PRICE"); err != nil {
		return nil, err
	}
	if cfg.YearlyPrice.LessThan(cfg.MonthlyPrice) {
		return nil, fmt.Errorf("YEARLY_PRICE (%s) must not be lower than MONTHLY_PRICE (%s)", cfg.YearlyPrice, cfg.MonthlyPrice)
	}

	if raw := getEnv("CHAIN_ID", ""); raw != "" {
		if cfg.ChainID, err = ParseChainID(raw); err != nil {
			return nil, fmt.Errorf("invalid CHAIN_ID: %w", err)
		}
	}

	if cfg.OracleTimeout, err = time.ParseDuration(getEnv("ORACLE_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid ORACLE_TIMEOUT: %w", err)
	}

	if cfg.NoticeDedup, err = strconv.ParseBool(getEnv("NOTICE_DEDUP", "true")); err != nil {
		return nil, fmt.Errorf("invalid NOTICE_DEDUP: %w", err)
	}

	if raw := getEnv("METRICS_ALLOWED_CIDRS", ""); raw != "" {
		for _, cidr := range strings.Split(raw, ",") {
			if cidr = strings.TrimSpace(cidr); cidr != "" {
				cfg.MetricsAllowedCIDRs = append(cfg.MetricsAllowedCIDRs, cidr)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints that cannot be expressed while parsing.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cron.ParseStandard(c.ScheduleCron); err != nil {
		return fmt.Errorf("invalid SCHEDULE_CRON %q: %w", c.ScheduleCron, err)
	}
	return nil
}

// PostgresDSN prefers DATABASE_URL and falls back to the discrete DB_* settings.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ParseChainID accepts decimal ("11155111") or hex ("0xaa36a7") notation.
func ParseChainID(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	base := 10
	if strings.HasPrefix(raw, "0x") {
		raw, base = raw[2:], 16
	}
	id, ok := new(big.Int).SetString(raw, base)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("%q is not a positive integer", raw)
	}
	return id, nil
}

func parsePrice(key string) (decimal.Decimal, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%s is required", key)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be positive", key)
	}
	return price, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
