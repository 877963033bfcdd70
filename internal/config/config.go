package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"confidential_casino/internal/logger"
	"confidential_casino/internal/solana"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string `env:"APP_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON       bool   `env:"LOG_JSON" envDefault:"false"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	// пусто = сессии в памяти
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret        string        `env:"JWT_SECRET"`
	JWTTTL           time.Duration `env:"JWT_TTL" envDefault:"24h"`
	AuthDomain       string        `env:"AUTH_DOMAIN" envDefault:"localhost"`
	AuthChallengeTTL time.Duration `env:"AUTH_CHALLENGE_TTL" envDefault:"5m"`

	// Ledger and decryption network
	RPCURL            string `env:"RPC_URL" envDefault:"https://api.devnet.solana.com"`
	IncoAPIURL        string `env:"INCO_API_URL"`
	CasinoProgramID   string `env:"CASINO_PROGRAM_ID" envDefault:"F9wygaMhPNWmCd6MMtZg7orv6ZkvuF4ycWopZ9cjq3Nc"`
	IncoProgramID     string `env:"INCO_PROGRAM_ID" envDefault:"5sjEbPiqgZrYwR31ahR6Uk9wf5awoX61YGg7jExQSwaj"`
	AdminAuthority    string `env:"ADMIN_AUTHORITY" envDefault:"8tmUuXnBRHbg8UYAPor6mDcmbzcENnu4tVz2sr7dmx9B"`
	WalletKeypairPath string `env:"WALLET_KEYPAIR_PATH"`

	// Wager limits, lamports. Defaults mirror the program's MIN_BET/MAX_BET.
	MinStake uint64 `env:"MIN_STAKE" envDefault:"10000000"`
	MaxStake uint64 `env:"MAX_STAKE" envDefault:"10000000000"`

	ConfirmTimeout     time.Duration `env:"CONFIRM_TIMEOUT" envDefault:"60s"`
	RevealChallengeTTL time.Duration `env:"REVEAL_CHALLENGE_TTL" envDefault:"5m"`

	APIRateLimit    int           `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateWindow   time.Duration `env:"API_RATE_WINDOW" envDefault:"1m"`
	WagerRateLimit  int           `env:"WAGER_RATE_LIMIT" envDefault:"30"`
	WagerRateWindow time.Duration `env:"WAGER_RATE_WINDOW" envDefault:"1m"`
}

// Load reads .env (if present) and the process environment.
// Missing required values terminate the process.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from the environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	if strings.TrimSpace(c.IncoAPIURL) == "" {
		errs = append(errs, errors.New("INCO_API_URL is not set"))
	}
	if c.WalletKeypairPath == "" {
		errs = append(errs, errors.New("WALLET_KEYPAIR_PATH is not set"))
	}

	for name, v := range map[string]string{
		"CASINO_PROGRAM_ID": c.CasinoProgramID,
		"INCO_PROGRAM_ID":   c.IncoProgramID,
		"ADMIN_AUTHORITY":   c.AdminAuthority,
	} {
		if _, err := solana.PublicKeyFromBase58(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if c.MinStake == 0 || c.MaxStake < c.MinStake {
		errs = append(errs, fmt.Errorf("stake bounds: min %d, max %d", c.MinStake, c.MaxStake))
	}
	if c.ConfirmTimeout <= 0 {
		errs = append(errs, errors.New("CONFIRM_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// ProgramIDs returns the parsed program addresses. Validate has already checked them.
func (c *Config) ProgramIDs() (casino, inco, authority solana.PublicKey) {
	return solana.MustPublicKey(c.CasinoProgramID),
		solana.MustPublicKey(c.IncoProgramID),
		solana.MustPublicKey(c.AdminAuthority)
}
