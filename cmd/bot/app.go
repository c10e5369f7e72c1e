package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mymmrac/telego"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"cryptopay-bot/internal/bot"
	"cryptopay-bot/internal/chain"
	"cryptopay-bot/internal/config"
	"cryptopay-bot/internal/database"
	"cryptopay-bot/internal/ledger"
	"cryptopay-bot/internal/messages"
	"cryptopay-bot/internal/metrics"
	"cryptopay-bot/internal/notify"
	"cryptopay-bot/internal/payment"
	"cryptopay-bot/internal/server"
	"cryptopay-bot/internal/utils"
	"cryptopay-bot/internal/worker"
)

// App wires every collaborator explicitly; nothing is process-global.
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Store     ledger.Store
	Verifier  *payment.Verifier
	Processor *payment.Processor
	Bot       *bot.Bot
	Checker   *worker.Checker
	Server    *server.Server

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	metrics.InitMetrics()

	var err error

	if a.DB, err = database.ConnectPostgres(cfg); err != nil {
		return err
	}
	if sqlDB, dbErr := a.DB.DB(); dbErr == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	a.Store = ledger.NewGormStore(a.DB)

	oracle, err := newOracle(ctx, cfg, a)
	if err != nil {
		return err
	}

	a.Verifier = payment.NewVerifier(a.Store, oracle, payment.Policy{
		Recipient:     common.HexToAddress(cfg.WalletAddress),
		ChainID:       cfg.ChainID,
		MonthlyPrice:  cfg.MonthlyPrice,
		YearlyPrice:   cfg.YearlyPrice,
		OracleTimeout: cfg.OracleTimeout,
	})
	a.Processor = payment.NewProcessor(a.Store, a.Verifier)

	tgBot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	var notifier notify.Notifier = notify.NewTelegramNotifier(tgBot)
	noticeNotifier := notifier
	if cfg.NoticeDedup {
		if a.Redis, err = database.ConnectRedis(ctx, cfg); err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = a.Redis.Close() })
		noticeNotifier = notify.NewDailyDedup(notifier, &notify.RedisMarks{Redis: a.Redis})
	}

	catalog := messages.Catalog{
		Wallet:       cfg.WalletAddress,
		Network:      cfg.NetworkName,
		MonthlyPrice: cfg.MonthlyPrice,
		YearlyPrice:  cfg.YearlyPrice,
	}
	a.Bot = bot.NewBot(tgBot, bot.NewHandler(a.Store, a.Processor, notifier, catalog))
	a.Checker = worker.NewChecker(a.Store, noticeNotifier, catalog, cfg.ScheduleCron)

	allowed, err := utils.ParsePrefixes(cfg.MetricsAllowedCIDRs)
	if err != nil {
		return err
	}
	a.Server = server.New(cfg.HTTPAddr, allowed, a.healthChecks())

	return nil
}

func newOracle(ctx context.Context, cfg *config.Config, app *App) (chain.Oracle, error) {
	switch cfg.OracleBackend {
	case config.OracleRPC:
		client, err := chain.DialRPC(ctx, cfg.RPCURL)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		return client, nil
	default:
		client := chain.NewEtherscanClient(cfg.EtherscanAPIURL, cfg.EtherscanAPIKey)
		client.HTTPClient.Timeout = cfg.OracleTimeout
		return client, nil
	}
}

func (a *App) healthChecks() map[string]server.Pinger {
	checks := map[string]server.Pinger{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Run blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Bot.Start(gctx) })
	g.Go(func() error { return a.Checker.Start(gctx) })
	g.Go(func() error { return a.Server.Run(gctx) })

	err := g.Wait()
	log.Info().Msg("Service stopped")
	return err
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
