package commands

import (
	"fmt"
	"marketwatch/internal/threshold"
	"strconv"

	"github.com/spf13/cobra"
)

var driftCmd = &cobra.Command{
	Use:   "drift <current> <reference>",
	Short: "Print how far a price is from a reference price in percent.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("current: %w", err)
		}
		reference, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		drift, ok := threshold.ComputeDrift(current, reference)
		if !ok {
			return fmt.Errorf("the reference price must not be 0")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%v%%\n", drift)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(driftCmd)
}
