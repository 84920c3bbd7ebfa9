package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fast-swap/config"
	"fast-swap/pkg/analytics"
	"fast-swap/pkg/chain"
	"fast-swap/pkg/client"
	"fast-swap/pkg/feedback"
	"fast-swap/pkg/server"
	"fast-swap/pkg/store"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dApp HTTP API",
	Long: `Serve the relay, proxy, analytics and user routes over HTTP.

Upstreams without credentials stay mounted and answer with a configuration
error. Stops gracefully on SIGINT or SIGTERM.

Examples:
  fast-swap serve
  fast-swap serve --listen :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup := buildDeps(ctx, cfg)
	defer cleanup()

	return server.New(deps, logger).Run(ctx, cfg.ListenAddr)
}

// buildDeps wires every configured upstream. Cleanup releases what was opened.
func buildDeps(ctx context.Context, cfg *config.Config) (server.Deps, func()) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	tokens := client.NewTokenListClient(cfg.TokenListURL, logger)
	tokens.StartJanitor(ctx)
	prices := client.NewPriceClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey, logger)
	prices.StartJanitor(ctx)

	analyticsClient := client.NewAnalyticsClient(cfg.AnalyticsURL, cfg.AnalyticsAuthToken, logger)

	deps := server.Deps{
		Tokens:         tokens,
		Prices:         prices,
		FastRPC:        client.NewFastRPCClient(cfg.FastRPCURL, cfg.FastRPCToken, logger),
		Analytics:      analytics.NewService(analyticsClient, logger),
		Fuul:           client.NewFuulClient(cfg.FuulURL, cfg.FuulAPIKey, logger),
		Waitlist:       client.NewEmailOctopusClient(cfg.EmailOctopusURL, cfg.EmailOctopusAPIKey, cfg.EmailOctopusListID, logger),
		NonceWordLimit: cfg.NonceWordLimit,
	}

	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("database unavailable", zap.Error(err))
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := db.Ping(pingCtx); err != nil {
				logger.Warn("database ping failed", zap.Error(err))
			}
			cancel()
			deps.Users = db
			closers = append(closers, func() { _ = db.Close() })
		}
	} else {
		logger.Warn("FAST_DAPP_DB_URL not set, user routes disabled")
	}

	var appender feedback.Appender
	if cfg.SheetsConfigured() {
		sheets, err := feedback.NewSheetsAppender(ctx, cfg.SheetsID, cfg.ServiceAccountEmail, cfg.ServiceAccountKey)
		if err != nil {
			logger.Error("google sheets unavailable", zap.Error(err))
		} else {
			appender = sheets
		}
	}
	deps.Feedback = feedback.NewService(appender, logger)

	if cfg.EthRPCURL != "" {
		eth, err := chain.Dial(ctx, cfg.EthRPCURL, cfg.Permit2Address)
		if err != nil {
			logger.Error("ethereum rpc unavailable", zap.Error(err))
		} else {
			poller := chain.NewGasPoller(eth, cfg.GasPollInterval, logger)
			go poller.Run(ctx)

			deps.Nonces = eth
			deps.Gas = poller
			closers = append(closers, eth.Close)
		}
	} else {
		logger.Warn("no ethereum rpc configured, gas and nonce routes disabled")
	}

	return deps, cleanup
}
