package commands

import (
	"fmt"
	"marketwatch/internal/components/serviceutil"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the most recent matches.",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		if config.Database.File == "" {
			serviceutil.Fatal("no history", fmt.Errorf("database.file is not configured"))
		}

		a, err := newApp(cmd.Context(), config)
		if err != nil {
			serviceutil.Fatal("failed to start", err)
		}
		defer a.Close()

		matches, err := a.history.Recent(cmd.Context(), historyLimit)
		if err != nil {
			a.Close()
			serviceutil.Fatal("failed to read history", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Matched at", "Rule", "Order", "Price", "Drift", "Message"})
		for _, m := range matches {
			drift := ""
			if m.Drift != nil {
				drift = fmt.Sprintf("%v%%", *m.Drift)
			}
			firstLine, _, _ := strings.Cut(m.Message, "\n")
			t.AppendRow(table.Row{
				m.MatchedAt.Format(time.DateTime),
				m.Rule,
				m.OrderID,
				m.SellPrice,
				drift,
				firstLine,
			})
		}
		t.Render()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "The number of matches to print.")
	rootCmd.AddCommand(historyCmd)
}
