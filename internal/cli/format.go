package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/sandrolain/goncalc"
	"github.com/sandrolain/goncalc/pkg/types"
)

// readExpressions returns args, or the lines of in when args is empty.
func readExpressions(in io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var out []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

func newFormatCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "format [expression...]",
		Short: "Print formulas in canonical form",
		Long: "Format parses each formula and prints its canonical text. Formulas are\n" +
			"read from the arguments, or one per line from standard input.",
		RunE: func(cmd *cobra.Command, args []string) error {
			exprs, err := readExpressions(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			var result *multierror.Error
			for i, text := range exprs {
				if strings.TrimSpace(text) == "" {
					continue
				}
				expr := goncalc.New(text, goncalc.WithOptions(types.NoCache), goncalc.WithLogger(st.slogLogger))
				if expr.HasErrors() {
					result = multierror.Append(result, fmt.Errorf("%d: %w", i+1, expr.Error()))
					continue
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), expr.Serialize()); err != nil {
					return err
				}
			}
			return result.ErrorOrNil()
		},
	}
}

func newCheckCmd(st *state) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "check [expression...]",
		Short: "Report formulas that fail to parse",
		Long: "Check parses each formula and prints every syntax error with its position.\n" +
			"It exits with an error when any formula is invalid.",
		RunE: func(cmd *cobra.Command, args []string) error {
			exprs, err := readExpressions(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var result *multierror.Error
			checked, invalid := 0, 0
			for i, text := range exprs {
				if strings.TrimSpace(text) == "" {
					continue
				}
				checked++
				expr := goncalc.New(text, goncalc.WithOptions(types.NoCache), goncalc.WithLogger(st.slogLogger))
				if !expr.HasErrors() {
					if !quiet {
						fmt.Fprintf(out, "%d: ok\n", i+1)
					}
					continue
				}
				invalid++
				result = multierror.Append(result, fmt.Errorf("%d: %w", i+1, expr.Error()))
				fmt.Fprintf(out, "%d: %v\n", i+1, expr.Error())
			}

			st.logger.Info().Int("checked", checked).Int("invalid", invalid).Msg("check finished")
			if err := result.ErrorOrNil(); err != nil {
				st.logger.Debug().Err(err).Msg("invalid formulas")
				return fmt.Errorf("%d of %d formulas are invalid", invalid, checked)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print invalid formulas")
	return cmd
}
