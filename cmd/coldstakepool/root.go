package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"coldstakepool/internal/api"
	"coldstakepool/internal/version"
)

type commandContext struct {
	urlFlag  *string
	jsonFlag *bool
}

func (c *commandContext) client() *api.Client {
	return api.NewClient(*c.urlFlag)
}

// tables reports whether output should render as tables. Piped output and
// the --json flag both select plain JSON.
func (c *commandContext) tables() bool {
	if *c.jsonFlag {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newRootCommand() *cobra.Command {
	var urlFlag string
	var jsonFlag bool

	ctx := &commandContext{urlFlag: &urlFlag, jsonFlag: &jsonFlag}

	rootCmd := &cobra.Command{
		Use:           "coldstakepool",
		Short:         "Operator CLI for the cold staking pool status API",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&urlFlag, "url", "http://localhost:9000", "Base URL of the pool status API")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print raw JSON instead of tables")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newVersionCommand(ctx))
	rootCmd.AddCommand(newBlocksCommand(ctx))
	rootCmd.AddCommand(newPayoutsCommand(ctx))
	rootCmd.AddCommand(newAddressCommand(ctx))

	return rootCmd
}
