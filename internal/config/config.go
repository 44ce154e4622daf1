// Package config defines the agent's configuration and its validation.
// Everything is cross-checked once at load time so the trading loop never has
// to re-validate per tick.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"galaswapbot/internal/domain"
)

// Config is the root configuration. Fields are populated from a TOML file and
// then optionally overridden by GALABOT_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	API      APIConfig      `toml:"api"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Notify   NotifyConfig   `toml:"notify"`
	Bot      BotConfig      `toml:"bot"`
	Tokens   TokensConfig   `toml:"tokens"`
	Accepter AccepterConfig `toml:"accepter"`
	Creator  CreatorConfig  `toml:"creator"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the GalaChain wallet identity and key material.
type WalletConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// APIConfig holds the GalaSwap API endpoint.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
}

// PostgresConfig holds PostgreSQL connection parameters for the ledgers and
// price history.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the own-offer cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds webhook URLs for the status reporters. Empty URLs
// disable the corresponding reporter; the console reporter is always on.
type NotifyConfig struct {
	SlackWebhookURL   string `toml:"slack_webhook_url"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// BotConfig holds trading-loop parameters.
type BotConfig struct {
	// TickInterval is the sleep between completed ticks.
	TickInterval Duration `toml:"tick_interval"`
	// ExecutionDelay is an optional pause between announcing an accept/create
	// and issuing the remote call.
	ExecutionDelay Duration `toml:"execution_delay"`
	// FeeToken is the token that pays the remote mutation fee. One unit is
	// reserved from its usable balance before any trade sizing.
	FeeToken domain.TokenClassKey `toml:"fee_token"`
	// IgnoreSwapsCreatedBefore filters the own-offer fetch to offers created at
	// or after this epoch-milliseconds cutoff. Zero disables the filter. An
	// optimization only, never a correctness requirement.
	IgnoreSwapsCreatedBefore int64 `toml:"ignore_swaps_created_before"`
}

// TokensConfig holds the token universe parameters.
type TokensConfig struct {
	// ProjectTokenPrefixes are symbol prefixes fetched in addition to the
	// default trending token list.
	ProjectTokenPrefixes []string `toml:"project_token_prefixes"`
	// PriceLimits are per-token sanity bands. A fetched price outside its band
	// fails the whole tick.
	PriceLimits []PriceLimitConfig `toml:"price_limits"`
}

// PriceLimitConfig is a sanity band for one token's USD price.
type PriceLimitConfig struct {
	Token       domain.TokenClassKey `toml:"token"`
	MinPriceUSD float64              `toml:"min_price_usd"`
	MaxPriceUSD float64              `toml:"max_price_usd"`
}

// AccepterConfig configures the offer-accepting strategy.
type AccepterConfig struct {
	PairLimits      []PairLimitConfig      `toml:"pair_limits"`
	MinimumBalances []MinimumBalanceConfig `toml:"minimum_balances"`
}

// PairLimitConfig bounds how much of the giving token the accepter may spend
// on one pair per reset interval, and which offers qualify.
type PairLimitConfig struct {
	// GivingToken is what the agent gives (the offer's wanted side).
	GivingToken domain.TokenClassKey `toml:"giving_token"`
	// ReceivingToken is what the agent receives (the offer's offered side).
	ReceivingToken domain.TokenClassKey `toml:"receiving_token"`
	// Rate is the minimum acceptable goodness rating.
	Rate float64 `toml:"rate"`
	// GiveLimitPerReset caps cumulative giving per reset interval (decimal).
	GiveLimitPerReset string   `toml:"give_limit_per_reset"`
	ResetInterval     Duration `toml:"reset_interval"`
	// MaxPriceMovementPercent is the volatility threshold as a fraction
	// (0.03 = 3%) over MaxPriceMovementWindow.
	MaxPriceMovementPercent float64  `toml:"max_price_movement_percent"`
	MaxPriceMovementWindow  Duration `toml:"max_price_movement_window"`
	// MaxReceivingTokenPriceUSD skips offers whose receiving token trades
	// above this USD price. Zero disables the ceiling.
	MaxReceivingTokenPriceUSD float64 `toml:"max_receiving_token_price_usd"`
	// MinReceivingTokenAmount skips offers that would deliver less than this
	// amount (decimal). Empty disables the floor.
	MinReceivingTokenAmount string `toml:"min_receiving_token_amount"`
}

// MinimumBalanceConfig keeps a floor of a token out of reach of the accepter.
type MinimumBalanceConfig struct {
	Token          domain.TokenClassKey `toml:"token"`
	MinimumBalance string               `toml:"minimum_balance"`
}

// CreatorConfig configures the offer-creating strategy.
type CreatorConfig struct {
	Targets        []TargetConfig        `toml:"targets"`
	CreationLimits []CreationLimitConfig `toml:"creation_limits"`
	Rounding       []RoundingConfig      `toml:"receiving_token_rounding"`
}

// TargetConfig describes one standing offer the creator keeps alive.
type TargetConfig struct {
	GivingToken    domain.TokenClassKey `toml:"giving_token"`
	ReceivingToken domain.TokenClassKey `toml:"receiving_token"`
	// TargetGivingSize is the total giving quantity per offer (decimal).
	TargetGivingSize string `toml:"target_giving_size"`
	// Profitability multipliers relative to market rate. Enforced:
	// min < target < max.
	TargetProfitability float64 `toml:"target_profitability"`
	MinProfitability    float64 `toml:"min_profitability"`
	MaxProfitability    float64 `toml:"max_profitability"`
	// Volatility guard for this target.
	MaxPriceMovementPercent float64  `toml:"max_price_movement_percent"`
	MaxPriceMovementWindow  Duration `toml:"max_price_movement_window"`
	// MaxReceivingTokenPriceUSD skips creation when the receiving token trades
	// above this USD price. Zero disables the ceiling.
	MaxReceivingTokenPriceUSD float64 `toml:"max_receiving_token_price_usd"`
	// GivingTokenMinimumValueUSD floors the giving token's price in the market
	// rate computation, protecting against temporarily depressed prices. Zero
	// disables the floor.
	GivingTokenMinimumValueUSD float64 `toml:"giving_token_minimum_value_usd"`
}

// CreationLimitConfig bounds cumulative offered amounts per pair per interval.
type CreationLimitConfig struct {
	GivingToken       domain.TokenClassKey `toml:"giving_token"`
	ReceivingToken    domain.TokenClassKey `toml:"receiving_token"`
	ResetInterval     Duration             `toml:"reset_interval"`
	GiveLimitPerReset string               `toml:"give_limit_per_reset"`
}

// RoundingConfig sets the decimal places used when ceiling-rounding the
// desired receiving amount for a token.
type RoundingConfig struct {
	Token         domain.TokenClassKey `toml:"token"`
	DecimalPlaces int                  `toml:"decimal_places"`
}

// duration wraps time.Duration for TOML string decoding ("5m", "30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "https://api-galaswap.gala.com",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "galaswapbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		Bot: BotConfig{
			TickInterval:   Duration{time.Minute},
			ExecutionDelay: Duration{0},
			FeeToken: domain.TokenClassKey{
				Collection: "GALA", Category: "Unit", Type: "none", AdditionalKey: "none",
			},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validClass(k domain.TokenClassKey) bool {
	return k.Collection != "" && k.Category != "" && k.Type != "" && k.AdditionalKey != ""
}

func validDecimal(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && d.IsPositive()
}

// Validate checks the Config for invalid or missing values and inconsistent
// cross-references, returning a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Wallet.Address == "" {
		errs = append(errs, "wallet: address must not be empty")
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "api: base_url must not be empty")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Bot.TickInterval.Duration <= 0 {
		errs = append(errs, "bot: tick_interval must be positive")
	}
	if !validClass(c.Bot.FeeToken) {
		errs = append(errs, "bot: fee_token must have all four class fields set")
	}

	for i, pl := range c.Tokens.PriceLimits {
		if !validClass(pl.Token) {
			errs = append(errs, fmt.Sprintf("tokens.price_limits[%d]: token must have all four class fields set", i))
		}
		if pl.MinPriceUSD < 0 || pl.MaxPriceUSD <= pl.MinPriceUSD {
			errs = append(errs, fmt.Sprintf("tokens.price_limits[%d]: need 0 <= min_price_usd < max_price_usd", i))
		}
	}

	errs = append(errs, c.validateAccepter()...)
	errs = append(errs, c.validateCreator()...)

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validateAccepter() []string {
	var errs []string

	seenPairs := map[string]bool{}
	for i, pl := range c.Accepter.PairLimits {
		prefix := fmt.Sprintf("accepter.pair_limits[%d]", i)
		if !validClass(pl.GivingToken) || !validClass(pl.ReceivingToken) {
			errs = append(errs, prefix+": both tokens must have all four class fields set")
			continue
		}
		pair := pl.GivingToken.String() + "->" + pl.ReceivingToken.String()
		if seenPairs[pair] {
			errs = append(errs, prefix+": duplicate pair "+pair)
		}
		seenPairs[pair] = true

		if pl.Rate <= 0 {
			errs = append(errs, prefix+": rate must be > 0")
		}
		if !validDecimal(pl.GiveLimitPerReset) {
			errs = append(errs, prefix+": give_limit_per_reset must be a positive decimal")
		}
		if pl.ResetInterval.Duration <= 0 {
			errs = append(errs, prefix+": reset_interval must be positive")
		}
		if pl.MaxPriceMovementPercent <= 0 || pl.MaxPriceMovementWindow.Duration <= 0 {
			errs = append(errs, prefix+": max_price_movement_percent and max_price_movement_window must be positive")
		}
		if pl.MinReceivingTokenAmount != "" && !validDecimal(pl.MinReceivingTokenAmount) {
			errs = append(errs, prefix+": min_receiving_token_amount must be a positive decimal when set")
		}
	}

	for i, mb := range c.Accepter.MinimumBalances {
		prefix := fmt.Sprintf("accepter.minimum_balances[%d]", i)
		if !validClass(mb.Token) {
			errs = append(errs, prefix+": token must have all four class fields set")
		}
		if !validDecimal(mb.MinimumBalance) {
			errs = append(errs, prefix+": minimum_balance must be a positive decimal")
		}
	}

	return errs
}

func (c *Config) validateCreator() []string {
	var errs []string

	for i, cl := range c.Creator.CreationLimits {
		prefix := fmt.Sprintf("creator.creation_limits[%d]", i)
		if !validClass(cl.GivingToken) || !validClass(cl.ReceivingToken) {
			errs = append(errs, prefix+": both tokens must have all four class fields set")
		}
		if cl.ResetInterval.Duration <= 0 {
			errs = append(errs, prefix+": reset_interval must be positive")
		}
		if !validDecimal(cl.GiveLimitPerReset) {
			errs = append(errs, prefix+": give_limit_per_reset must be a positive decimal")
		}
	}

	seenShapes := map[string]bool{}
	for i, t := range c.Creator.Targets {
		prefix := fmt.Sprintf("creator.targets[%d]", i)
		if !validClass(t.GivingToken) || !validClass(t.ReceivingToken) {
			errs = append(errs, prefix+": both tokens must have all four class fields set")
			continue
		}
		if !validDecimal(t.TargetGivingSize) {
			errs = append(errs, prefix+": target_giving_size must be a positive decimal")
		}

		shape := t.GivingToken.String() + "->" + t.ReceivingToken.String() + "@" + t.TargetGivingSize
		if seenShapes[shape] {
			errs = append(errs, prefix+": duplicate pair/size combination "+shape)
		}
		seenShapes[shape] = true

		if !(t.MinProfitability < t.TargetProfitability && t.TargetProfitability < t.MaxProfitability) {
			errs = append(errs, fmt.Sprintf("%s: need min_profitability < target_profitability < max_profitability, got %v / %v / %v",
				prefix, t.MinProfitability, t.TargetProfitability, t.MaxProfitability))
		}
		if t.MaxPriceMovementPercent <= 0 || t.MaxPriceMovementWindow.Duration <= 0 {
			errs = append(errs, prefix+": max_price_movement_percent and max_price_movement_window must be positive")
		}

		matchingLimits := 0
		for _, cl := range c.Creator.CreationLimits {
			if cl.GivingToken == t.GivingToken && cl.ReceivingToken == t.ReceivingToken {
				matchingLimits++
			}
		}
		if matchingLimits == 0 {
			errs = append(errs, prefix+": no creation limit matches its pair")
		}

		matchingRounding := 0
		for _, r := range c.Creator.Rounding {
			if r.Token == t.ReceivingToken {
				matchingRounding++
			}
		}
		if matchingRounding != 1 {
			errs = append(errs, fmt.Sprintf("%s: need exactly one receiving_token_rounding entry for %s, found %d",
				prefix, t.ReceivingToken.String(), matchingRounding))
		}
	}

	for i, r := range c.Creator.Rounding {
		prefix := fmt.Sprintf("creator.receiving_token_rounding[%d]", i)
		if !validClass(r.Token) {
			errs = append(errs, prefix+": token must have all four class fields set")
		}
		if r.DecimalPlaces < 0 {
			errs = append(errs, prefix+": decimal_places must be >= 0")
		}
	}

	return errs
}
