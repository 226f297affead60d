package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Go-routine-4595/iba-monitor/service"
	"github.com/Go-routine-4595/iba-monitor/service/expr"
)

func newCheckExprCommand() *cobra.Command {
	var val float64
	c := &cobra.Command{
		Use:   "check-expr <expression>",
		Short: "Compile an alarm expression and evaluate it for one value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := expr.Compile(args[0])
			if err != nil {
				return err
			}
			alarm, err := prog.Eval(val)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s with val=%s: alarm=%t\n",
				prog, strconv.FormatFloat(val, 'f', -1, 64), alarm)
			return nil
		},
	}
	c.Flags().Float64Var(&val, "val", 0, "value bound to val")
	return c
}

func newCheckSignalsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-signals <file.jsonl>",
		Short: "Validate a signal definition file and report invalid expressions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := service.LoadSignals(args[0])
			if err != nil {
				return err
			}
			ev := service.NewEvaluator()
			bad := 0
			for _, c := range configs {
				if err := ev.Check(c); err != nil {
					bad++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %q: %v\n", c.ID, c.Expression, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", c.ID, service.RuleText(c))
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d signals have invalid expressions", bad, len(configs))
			}
			return nil
		},
	}
}
