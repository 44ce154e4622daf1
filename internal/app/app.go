// Package app wires the bot together: key loading, persistence, cache,
// reporters, API client, strategies, and the tick orchestrator.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"galaswapbot/internal/bot"
	"galaswapbot/internal/cache/redis"
	"galaswapbot/internal/config"
	"galaswapbot/internal/galaswap"
	"galaswapbot/internal/notify"
	"galaswapbot/internal/signing"
	"galaswapbot/internal/store/postgres"
	"galaswapbot/internal/strategy"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and runs the trading loop until the context is
// cancelled or a tick fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting",
		slog.String("wallet", a.cfg.Wallet.Address),
		slog.String("api", a.cfg.API.BaseURL),
	)

	ticker, err := a.wire(ctx)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}

	return ticker.Run(ctx)
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) wire(ctx context.Context) (*bot.Ticker, error) {
	privateKey, err := signing.LoadKey(signing.KeyConfig{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, err
	}
	signer, err := signing.NewSigner(privateKey)
	if err != nil {
		return nil, err
	}

	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      a.cfg.Postgres.DSN,
		Host:     a.cfg.Postgres.Host,
		Port:     a.cfg.Postgres.Port,
		Database: a.cfg.Postgres.Database,
		User:     a.cfg.Postgres.User,
		Password: a.cfg.Postgres.Password,
		SSLMode:  a.cfg.Postgres.SSLMode,
		MaxConns: a.cfg.Postgres.PoolMaxConns,
		MinConns: a.cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)

	if a.cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			return nil, err
		}
	}

	rd, err := redis.New(ctx, redis.ClientConfig{
		Addr:       a.cfg.Redis.Addr,
		Password:   a.cfg.Redis.Password,
		DB:         a.cfg.Redis.DB,
		PoolSize:   a.cfg.Redis.PoolSize,
		MaxRetries: a.cfg.Redis.MaxRetries,
		TLSEnabled: a.cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = rd.Close() })

	acceptLedger := postgres.NewAcceptedSwapStore(pg.Pool())
	useLedger := postgres.NewSwapUseStore(pg.Pool())
	prices := postgres.NewPriceStore(pg.Pool())
	offers := redis.NewOfferCache(rd)

	reporter := a.buildReporter()

	client := galaswap.New(a.cfg.API.BaseURL, a.cfg.Wallet.Address, signer, a.logger, galaswap.Options{})

	strategies := []strategy.Strategy{
		strategy.NewAccepter(a.cfg.Accepter, a.cfg.Bot.FeeToken, client, acceptLedger, prices, reporter, a.logger),
		strategy.NewCreator(a.cfg.Creator, a.cfg.Bot.FeeToken, useLedger, prices, a.logger),
	}

	return bot.NewTicker(
		a.cfg.Wallet.Address,
		a.cfg.Bot,
		a.cfg.Tokens,
		client,
		strategies,
		offers,
		acceptLedger,
		useLedger,
		prices,
		reporter,
		a.logger,
	), nil
}

// buildReporter always includes the console reporter and adds a webhook
// reporter per configured URL.
func (a *App) buildReporter() notify.StatusReporter {
	reporters := []notify.StatusReporter{notify.NewConsoleReporter(a.logger)}
	if a.cfg.Notify.SlackWebhookURL != "" {
		reporters = append(reporters, notify.NewSlackReporter(a.cfg.Notify.SlackWebhookURL, a.logger))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		reporters = append(reporters, notify.NewDiscordReporter(a.cfg.Notify.DiscordWebhookURL, a.logger))
	}
	return notify.NewMultiReporter(reporters...)
}
