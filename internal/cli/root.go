// Package cli implements the goncalc command.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sandrolain/goncalc"
)

// state is shared by the subcommands of one invocation.
type state struct {
	verbosity  int
	jsonLogs   bool
	logger     zerolog.Logger
	slogLogger *slog.Logger
}

// NewRootCmd returns the goncalc command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	cmd := &cobra.Command{
		Use:   "goncalc",
		Short: "Evaluate, format and check spreadsheet-style formulas",
		Long: "goncalc evaluates formulas such as \"[price] * (1 + [vat])\" against\n" +
			"parameters given on the command line or in a YAML file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			base := newLogger(cmd.ErrOrStderr(), st.verbosity, st.jsonLogs)
			st.logger = base.With().Timestamp().Logger()
			st.slogLogger = newSlogLogger(base)
		},
	}

	cmd.PersistentFlags().CountVarP(&st.verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	cmd.PersistentFlags().BoolVar(&st.jsonLogs, "log-json", false,
		"Write logs as JSON instead of console text")

	cmd.AddCommand(newEvalCmd(st))
	cmd.AddCommand(newFormatCmd(st))
	cmd.AddCommand(newCheckCmd(st))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the goncalc version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), goncalc.Version())
		},
	}
}
