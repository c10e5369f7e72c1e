package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"cryptopay-bot/internal/chain"
	"cryptopay-bot/internal/config"
	"cryptopay-bot/internal/logging"
	"cryptopay-bot/internal/payment"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "cryptopay-bot",
	Short:         "Telegram subscriptions paid in ETH",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the renewal scheduler and the ops endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one renewal notification pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.Context())
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <tx-hash>",
	Short: "Check a transaction against the payment policy without crediting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd.Context(), args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, checkCmd, verifyCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	logging.Init(logging.Config{Format: "console", Level: "info", Component: "cryptopay-bot"})

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logging.Init(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Component: "cryptopay-bot"})
	return cfg, nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Info().Str("version", Version).Msg("Crypto Pay Telegram Bot is running...")
	return app.Run(ctx)
}

func runCheck(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Checker.Run(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("expired notices: %d, reminders: %d, failed: %d\n", report.Expired, report.Reminded, report.Failed)
	return nil
}

func runVerify(ctx context.Context, reference string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	acc, err := app.Verifier.Verify(ctx, reference)
	if err != nil {
		fmt.Printf("rejected: %s (%v)\n", payment.ReasonOf(err), err)
		return nil
	}
	fmt.Printf("accepted: tier=%s amount=%s ETH to=%s chain=%s\n",
		acc.Tier, acc.Amount.String(), acc.Transaction.To.Hex(), acc.Transaction.ChainID)
	if ref, _ := chain.NormalizeReference(reference); ref != reference {
		fmt.Printf("normalized reference: %s\n", ref)
	}
	return nil
}
