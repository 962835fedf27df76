package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"coldstakepool/internal/config"
	"coldstakepool/internal/daemon"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/notifications"
	"coldstakepool/internal/pool"
	"coldstakepool/internal/preflight"
	"coldstakepool/internal/prepare"
	"coldstakepool/internal/services/capricoind"
	"coldstakepool/internal/version"
)

// PoolLogFileName is the legacy-format log file written into the pool dir.
const PoolLogFileName = "stakepool.log"

type runFlags struct {
	dataDir    string
	configPath string
	mainnet    bool
	testnet    bool
	regtest    bool
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:           "coldstakepool-run",
		Short:         "Run the cold staking pool daemon",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dataDir, "datadir", "", "Path to the stakepool data directory holding stakepool.json")
	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVar(&flags.mainnet, "mainnet", false, "Follow mainnet")
	cmd.Flags().BoolVar(&flags.testnet, "testnet", false, "Follow testnet")
	cmd.Flags().BoolVar(&flags.regtest, "regtest", false, "Follow regtest")

	return cmd
}

func runDaemon(cmd *cobra.Command, flags *runFlags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	chain := config.ChainFromFlags(flags.testnet, flags.regtest)

	poolDir, err := resolvePoolDir(flags.dataDir, chain)
	if err != nil {
		return err
	}

	cfg, _, _, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	settings, err := config.LoadSettings(poolDir)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", filepath.Join(poolDir, PoolLogFileName)},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	results := preflight.RunAll(ctx, cfg, settings, chain, poolDir)
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight check passed", logging.String("check", result.Name))
			continue
		}
		if result.Optional {
			logger.Warn("optional preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	if preflight.Failed(results) {
		return fmt.Errorf("preflight checks failed")
	}

	store, err := openPoolStore(ctx, poolDir, chain)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := capricoind.New(capricoind.ResolveConfig(cfg.RPC, chain, settings.CapricoinPlusDataDir))
	if err != nil {
		return err
	}

	var wallet pool.RewardWallet
	if !settings.Observer() {
		wallet = client.Wallet(prepare.RewardWalletName)
	}

	notifier := notifications.NewService(cfg)
	engine, err := pool.NewEngine(store, client, wallet, settings, cfg.Engine, notifier, logger)
	if err != nil {
		return err
	}

	d, err := daemon.New(cfg, settings, chain, poolDir, store, engine, client, logger)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// openPoolStore opens the accounting store and verifies it was created for
// the selected chain.
func openPoolStore(ctx context.Context, poolDir string, chain config.Chain) (*pool.Store, error) {
	store, err := pool.OpenStore(poolDir)
	if err != nil {
		return nil, err
	}
	if _, err := store.Chain(ctx, string(chain)); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// resolvePoolDir expands the configured pool directory, defaulting to the
// location the prepare tool creates.
func resolvePoolDir(dataDir string, chain config.Chain) (string, error) {
	if dataDir == "" {
		_, poolDir, err := prepare.ResolveDirs("", "", chain)
		return poolDir, err
	}
	return config.ExpandPath(dataDir)
}
