package commands

import (
	"fmt"
	"marketwatch/internal/components/serviceutil"
	"marketwatch/internal/scanner"
	"os"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/spf13/cobra"
)

var scanRuleTitle string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the marketplace once with every rule and print the matches.",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		rules, err := selectRules(config.ScannerRules(), scanRuleTitle)
		if err != nil {
			serviceutil.Fatal("failed to select rules", err)
		}

		a, err := newApp(cmd.Context(), config)
		if err != nil {
			serviceutil.Fatal("failed to start", err)
		}
		defer a.Close()

		_, err = a.scan(cmd.Context(), rules, scanner.NewConsoleNotifier(os.Stdout))
		if err != nil {
			a.Close()
			serviceutil.Fatal("scan failed", err)
		}
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanRuleTitle, "rule", "r", "", "Only run the rule with this title.")
	rootCmd.AddCommand(scanCmd)
}

// selectRules returns every rule when title is empty, otherwise the rule
// with that title. Unknown titles are answered with the closest one.
func selectRules(rules []scanner.Rule, title string) ([]scanner.Rule, error) {
	if title == "" {
		return rules, nil
	}
	for _, r := range rules {
		if r.Title == title {
			return []scanner.Rule{r}, nil
		}
	}

	closest := ""
	closestDist := -1
	for _, r := range rules {
		dist := matchr.Levenshtein(strings.ToLower(title), strings.ToLower(r.Title))
		if closestDist < 0 || dist < closestDist {
			closest = r.Title
			closestDist = dist
		}
	}
	if closest == "" {
		return nil, fmt.Errorf("unknown rule %q, no rules are configured", title)
	}
	return nil, fmt.Errorf("unknown rule %q, did you mean %q?", title, closest)
}
