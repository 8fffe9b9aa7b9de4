package commands

import (
	"context"
	"log/slog"
	"marketwatch/internal/components/chrono"
	"marketwatch/internal/components/serviceutil"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/scanner"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

var (
	watchSchedule string
	watchRule     string
	watchNow      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan the marketplace on a cron schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		rules, err := selectRules(config.ScannerRules(), watchRule)
		if err != nil {
			serviceutil.Fatal("failed to select rules", err)
		}

		a, err := newApp(ctx, config)
		if err != nil {
			serviceutil.Fatal("failed to start", err)
		}
		defer a.Close()

		notifier := scanner.NewConsoleNotifier(os.Stdout)
		w := newWatcher(func(ctx context.Context) (scanner.Result, error) {
			return a.scan(ctx, rules, notifier)
		})
		run := func() {
			w.run(ctx)
		}

		next, err := chrono.NextRun(watchSchedule, time.Now())
		if err != nil {
			a.Close()
			serviceutil.Fatal("invalid schedule", err)
		}
		cron := chrono.NewStandardCron(telemetry.SlogAPI{})
		err = cron.Cron(watchSchedule, run)
		if err != nil {
			cron.Stop()
			a.Close()
			serviceutil.Fatal("failed to schedule scan", err)
		}
		slog.Info("watching", "schedule", watchSchedule, "rules", len(rules), "next", next.Format(time.DateTime))
		if watchNow {
			run()
		}

		<-ctx.Done()
		slog.Info("stopping")
		cron.Stop()
	},
}

// watcher runs one scan at a time. The immediate run of --now and every
// cron tick go through run, a call made while a scan is going is skipped.
type watcher struct {
	mu      sync.Mutex
	scan    func(ctx context.Context) (scanner.Result, error)
	skipped atomic.Int64
}

func newWatcher(scan func(ctx context.Context) (scanner.Result, error)) *watcher {
	return &watcher{scan: scan}
}

// run scans once and logs the outcome, errors do not end the schedule.
// It returns false when the call was skipped.
func (w *watcher) run(ctx context.Context) bool {
	if !w.mu.TryLock() {
		n := w.skipped.Add(1)
		slog.Warn("previous scan still running, skipping this one", "skipped", n)
		return false
	}
	defer w.mu.Unlock()

	if ctx.Err() != nil {
		return true
	}
	result, err := w.scan(ctx)
	if err != nil {
		slog.Error("scheduled scan failed", "err", err)
		return true
	}
	slog.Info("scheduled scan finished", "matches", len(result.Messages), "halted", result.Halted)
	return true
}

func init() {
	watchCmd.Flags().StringVarP(&watchSchedule, "schedule", "s", "@every 5m", "The cron schedule to scan on.")
	watchCmd.Flags().StringVarP(&watchRule, "rule", "r", "", "Only run the rule with this title.")
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Scan once right away before waiting for the schedule.")
	rootCmd.AddCommand(watchCmd)
}
