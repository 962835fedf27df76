package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the pool summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			if !ctx.tables() {
				return writeJSON(cmd, status)
			}

			fields := [][2]string{
				{"Mode", status.Mode},
				{"Chain", status.Chain},
				{"Pool address", status.PoolAddress},
				{"Reward address", status.RewardAddress},
				{"Synced height", formatHeight(status.LastHeight)},
				{"Blocks found", strconv.FormatInt(status.BlocksFound, 10)},
				{"Participants", strconv.FormatInt(status.Participants, 10)},
				{"Total reward", status.TotalReward},
				{"Pool fees", status.TotalPoolFees},
				{"Distributed", status.TotalDistributed},
				{"Pending", status.TotalPending},
				{"Paid out", status.TotalPaid},
				{"Pool fee %", fmt.Sprintf("%g", status.Parameters.PoolFeePercent)},
				{"Stake bonus %", fmt.Sprintf("%g", status.Parameters.StakeBonusPercent)},
				{"Payout threshold", fmt.Sprintf("%g", status.Parameters.PayoutThreshold)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(fields))
			return nil
		},
	}
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show pool and node versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := ctx.client().Version(cmd.Context())
			if err != nil {
				return err
			}
			if !ctx.tables() {
				return writeJSON(cmd, versions)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pool: %s\ncore: %s\n", versions.Pool, versions.Core)
			return nil
		},
	}
}

func newBlocksCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "List blocks found by the pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			blocks, err := ctx.client().Blocks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if !ctx.tables() {
				return writeJSON(cmd, blocks)
			}

			rows := make([][]string, 0, len(blocks))
			for _, block := range blocks {
				rows = append(rows, []string{
					formatHeight(block.Height),
					block.StakerAddress,
					block.Reward,
					block.PoolFee,
					block.Distributed,
					block.FoundAt,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderList(
				[]string{"Height", "Staker", "Reward", "Fee", "Distributed", "Found"},
				rows, 0, 2, 3, 4,
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of blocks to list")
	return cmd
}

func newPayoutsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "payouts",
		Short: "List payout batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payouts, err := ctx.client().Payouts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if !ctx.tables() {
				return writeJSON(cmd, payouts)
			}

			rows := make([][]string, 0, len(payouts))
			for _, payout := range payouts {
				rows = append(rows, []string{
					payout.BatchID,
					payout.Address,
					payout.Amount,
					payout.Status,
					payout.Txid,
					formatHeight(payout.Height),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderList(
				[]string{"Batch", "Address", "Amount", "Status", "Txid", "Height"},
				rows, 2, 5,
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of payout rows to list")
	return cmd
}

func newAddressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "address <addr>",
		Short: "Show a participant's balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			participant, err := ctx.client().Participant(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ctx.tables() {
				return writeJSON(cmd, participant)
			}

			fields := [][2]string{
				{"Address", participant.Address},
				{"Accumulated", participant.Accumulated},
				{"Pending", participant.Pending},
				{"Paid out", participant.TotalPaid},
				{"Last seen height", formatHeight(participant.LastSeenHeight)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderFields(fields))

			if len(participant.Payouts) > 0 {
				payoutRows := make([][]string, 0, len(participant.Payouts))
				for _, payout := range participant.Payouts {
					payoutRows = append(payoutRows, []string{
						payout.BatchID, payout.Amount, payout.Status, payout.Txid,
					})
				}
				fmt.Fprintln(out, renderList(
					[]string{"Batch", "Amount", "Status", "Txid"},
					payoutRows, 1,
				))
			}
			return nil
		},
	}
}
