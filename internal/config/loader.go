package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GALABOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GALABOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Wallet.Address, "GALABOT_WALLET_ADDRESS")
	setStr(&cfg.Wallet.PrivateKey, "GALABOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "GALABOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "GALABOT_WALLET_KEY_PASSWORD")

	setStr(&cfg.API.BaseURL, "GALABOT_API_BASE_URL")

	setStr(&cfg.Postgres.DSN, "GALABOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "GALABOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "GALABOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "GALABOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "GALABOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "GALABOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "GALABOT_POSTGRES_SSL_MODE")
	setBool(&cfg.Postgres.RunMigrations, "GALABOT_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "GALABOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GALABOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GALABOT_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "GALABOT_REDIS_TLS_ENABLED")

	setStr(&cfg.Notify.SlackWebhookURL, "GALABOT_SLACK_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordWebhookURL, "GALABOT_DISCORD_WEBHOOK_URL")

	setDuration(&cfg.Bot.TickInterval, "GALABOT_TICK_INTERVAL")
	setDuration(&cfg.Bot.ExecutionDelay, "GALABOT_EXECUTION_DELAY")
	setInt64(&cfg.Bot.IgnoreSwapsCreatedBefore, "GALABOT_IGNORE_SWAPS_CREATED_BEFORE")

	setStr(&cfg.LogLevel, "GALABOT_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
