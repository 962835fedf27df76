package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coldstakepool/internal/config"
	"coldstakepool/internal/logging"
	"coldstakepool/internal/prepare"
	"coldstakepool/internal/services/coreinstall"
	"coldstakepool/internal/version"
)

type prepareFlags struct {
	dataDir              string
	poolDir              string
	testnet              bool
	regtest              bool
	mainnet              bool
	mode                 string
	configURL            string
	stakeWalletMnemonic  string
	rewardWalletMnemonic string
	updateCore           bool
	downloadCore         bool
}

func newRootCommand() *cobra.Command {
	flags := &prepareFlags{}

	cmd := &cobra.Command{
		Use:           "coldstakepool-prepare",
		Short:         "Set up a capricoinplus cold staking pool",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrepare(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dataDir, "datadir", "", "Path to the capricoinplus data directory (default ~/.capricoinplus)")
	cmd.Flags().StringVar(&flags.poolDir, "pooldir", "", "Path to the stakepool data directory (default {datadir}/stakepool)")
	cmd.Flags().BoolVar(&flags.mainnet, "mainnet", false, "Prepare for mainnet")
	cmd.Flags().BoolVar(&flags.testnet, "testnet", false, "Prepare for testnet")
	cmd.Flags().BoolVar(&flags.regtest, "regtest", false, "Prepare for regtest")
	cmd.Flags().StringVar(&flags.mode, "mode", config.ModeMaster, "Pool mode, master or observer")
	cmd.Flags().StringVar(&flags.configURL, "configurl", "", "URL of the master pool's stakepool.json, required for observer mode")
	cmd.Flags().StringVar(&flags.stakeWalletMnemonic, "stake_wallet_mnemonic", "", "Recovery phrase for the staking wallet (default randomly generated)")
	cmd.Flags().StringVar(&flags.rewardWalletMnemonic, "reward_wallet_mnemonic", "", "Recovery phrase for the reward wallet (default randomly generated)")
	cmd.Flags().BoolVar(&flags.updateCore, "update_core", false, "Download, verify and extract the capricoinplus-core release, then exit")
	cmd.Flags().BoolVar(&flags.downloadCore, "download_core", false, "Download and verify the capricoinplus-core release, then exit")

	return cmd
}

func runPrepare(cmd *cobra.Command, flags *prepareFlags) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.New(logging.Options{Level: "info", Format: "pool"})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	env, err := coreinstall.FromEnv()
	if err != nil {
		return err
	}

	if flags.updateCore || flags.downloadCore {
		installer := coreinstall.New(env, logger)
		if err := installer.Download(ctx); err != nil {
			return err
		}
		if flags.updateCore {
			return installer.Extract(ctx)
		}
		return nil
	}

	preparer, err := prepare.New(prepare.Options{
		DataDir:              flags.dataDir,
		PoolDir:              flags.poolDir,
		Chain:                config.ChainFromFlags(flags.testnet, flags.regtest),
		Mode:                 flags.mode,
		ConfigURL:            flags.configURL,
		StakeWalletMnemonic:  flags.stakeWalletMnemonic,
		RewardWalletMnemonic: flags.rewardWalletMnemonic,
	}, env, logger)
	if err != nil {
		return err
	}

	result, err := preparer.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Pool directory: %s\n", result.PoolDir)
	fmt.Fprintf(out, "Settings file:  %s\n", result.SettingsPath)
	if result.StakeWalletMnemonic != "" {
		fmt.Fprintln(out, "NOTE: Save both recovery phrases:")
		fmt.Fprintf(out, "Stake wallet recovery phrase:  %s\n", result.StakeWalletMnemonic)
		fmt.Fprintf(out, "Reward wallet recovery phrase: %s\n", result.RewardWalletMnemonic)
	}
	fmt.Fprintf(out, "Stake address:  %s\n", result.PoolAddress)
	fmt.Fprintf(out, "Reward address: %s\n", result.RewardAddress)
	return nil
}
