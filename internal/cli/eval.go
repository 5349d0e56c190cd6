package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sandrolain/goncalc"
	"github.com/sandrolain/goncalc/internal/wire"
	"github.com/sandrolain/goncalc/pkg/ext"
	"github.com/sandrolain/goncalc/pkg/types"
)

func newEvalCmd(st *state) *cobra.Command {
	var (
		params   []string
		file     string
		options  string
		withExt  bool
		compiled bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "eval [expression]",
		Short: "Evaluate a formula",
		Long: "Eval evaluates a formula and prints its value. Parameters come from -p flags\n" +
			"and from a YAML document given with --params, which may also hold the\n" +
			"expression and options. Under IterateParameters each row is printed on\n" +
			"its own line.",
		Example: "  goncalc eval '[x] * 2' -p x=21\n" +
			"  goncalc eval '[a] + [b]' -p a=1,2,3 -p b=10 --options IterateParameters\n" +
			"  goncalc eval --params order.yaml",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req wire.Request
			if file != "" {
				var err error
				if req, err = wire.LoadFile(file); err != nil {
					return err
				}
			}
			if len(args) == 1 {
				req.Expression = args[0]
			}
			if strings.TrimSpace(req.Expression) == "" {
				return errors.New("no expression given")
			}
			req.Options = joinOptions(req.Options, options)

			for _, p := range params {
				name, value, err := parseParam(p)
				if err != nil {
					return err
				}
				if req.Parameters == nil {
					req.Parameters = map[string]any{}
				}
				req.Parameters[name] = value
			}

			opts := []goncalc.Option{goncalc.WithLogger(st.slogLogger)}
			if withExt {
				opts = append(opts, goncalc.WithFunctions(ext.Registry()))
			}

			st.logger.Info().
				Str("expression", req.Expression).
				Str("options", req.Options).
				Int("parameters", len(req.Parameters)).
				Bool("compiled", compiled).
				Msg("evaluating")

			start := time.Now()
			result, err := evaluate(cmd, req, compiled, opts)
			st.logger.Debug().Dur("elapsed", time.Since(start)).Err(err).Msg("evaluated")
			if err != nil {
				return err
			}

			if asJSON {
				return wire.NewResponse(result, nil).Encode(cmd.OutOrStdout())
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil,
		"Set a parameter as name=value; the value is read as a formula, a comma\n"+
			"separated list of formulas, or plain text")
	cmd.Flags().StringVar(&file, "params", "",
		"Read the expression, options and parameters from a YAML file")
	cmd.Flags().StringVarP(&options, "options", "o", "",
		"Evaluation options, e.g. IgnoreCase|IterateParameters")
	cmd.Flags().BoolVar(&withExt, "ext", false,
		"Enable the string and date extension functions")
	cmd.Flags().BoolVar(&compiled, "compile", false,
		"Compile the formula to a closure before running it")
	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Print the result as a JSON response")

	return cmd
}

func evaluate(cmd *cobra.Command, req wire.Request, compiled bool, opts []goncalc.Option) (any, error) {
	if !compiled {
		return req.Evaluate(cmd.Context(), opts...)
	}
	expr, err := req.Build(opts...)
	if err != nil {
		return nil, err
	}
	fn, err := goncalc.ToLambda[any](cmd.Context(), expr)
	if err != nil {
		return nil, err
	}
	return fn()
}

func joinOptions(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "|" + b
}

// parseParam splits name=value and reads value as a constant formula. A
// value that is not one, such as a bare word, is kept as text.
func parseParam(s string) (string, any, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid parameter %q: want name=value", s)
	}

	if v, ok := constant(value); ok {
		return name, v, nil
	}
	if strings.Contains(value, ",") {
		parts := strings.Split(value, ",")
		list := make([]any, len(parts))
		for i, part := range parts {
			v, ok := constant(part)
			if !ok {
				v = strings.TrimSpace(part)
			}
			list[i] = v
		}
		return name, list, nil
	}
	return name, value, nil
}

func constant(text string) (any, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	v, err := goncalc.New(text, goncalc.WithOptions(types.NoCache)).Evaluate(context.Background())
	if err != nil {
		return nil, false
	}
	return v, true
}

func printResult(w io.Writer, result any) error {
	if rows, ok := result.([]any); ok {
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, formatValue(row)); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(w, formatValue(result))
	return err
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
