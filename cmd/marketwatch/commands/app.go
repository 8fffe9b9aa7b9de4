package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"marketwatch/internal/components/chrono"
	"marketwatch/internal/components/configutil"
	"marketwatch/internal/components/db"
	"marketwatch/internal/components/journal"
	"marketwatch/internal/components/telemetry"
	"marketwatch/internal/history"
	"marketwatch/internal/scanner"
	"marketwatch/internal/session"
	"marketwatch/internal/stepn"
	"os"
)

const (
	defaultSessionFile = "session.json"
	serviceName        = "marketwatch"
)

func loadConfig() (Config, error) {
	config, err := configutil.ReadConfig[Config](configFile)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
	}
	err = config.Validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", configFile, err)
	}
	return config, nil
}

// app holds every long lived component of one process.
type app struct {
	config  Config
	manager *session.Manager
	scanner scanner.Scanner
	history *history.Store
	otel    telemetry.Otel
	closers []io.Closer
}

func newApp(ctx context.Context, config Config) (_ *app, err error) {
	tel := telemetry.SlogAPI{}
	clock := chrono.NewStandardImpl()
	a := &app{config: config}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if config.Telemetry.Enabled() {
		a.otel, err = telemetry.SetupOtel(ctx, serviceName, config.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("setup otel: %w", err)
		}
	}

	var jour journal.Journal = journal.Nop{}
	if config.Journal.File != "" {
		w, closer := journal.Open(journal.Options{
			File:       config.Journal.File,
			MaxSizeMB:  config.Journal.MaxSizeMB,
			MaxBackups: config.Journal.MaxBackups,
		}, clock)
		jour = w
		a.closers = append(a.closers, closer)
	}

	var database *sql.DB
	if config.Database.File != "" {
		database, err = db.Open(config.Database.File)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, database)
		store := history.NewStore(database)
		a.history = &store
	}

	var store session.Store
	if config.Session.Database {
		store = session.NewSqliteStore(database, config.Account)
	} else {
		file := config.Session.File
		if file == "" {
			file = defaultSessionFile
		}
		store = session.NewFileStore(file)
	}

	apiOpts := config.Api.Options()
	apiOpts.Journal = jour
	client := stepn.NewClient(apiOpts, tel)

	var codes session.CodeGenerator
	if config.TotpSecret != "" {
		codes = session.NewTOTP(config.TotpSecret, clock)
	}
	a.manager = session.NewManager(client, store, session.Options{
		Account:  config.Account,
		Password: config.Password,
		Codes:    codes,
		Clock:    clock,
	}, tel)

	scanOpts := scanner.Options{
		HaltOnFirstMatch: config.HaltOnFirstMatch,
		Journal:          jour,
		Clock:            clock,
	}
	if a.history != nil {
		scanOpts.History = a.history
	}
	a.scanner = scanner.NewScanner(
		scanner.NewSessionMarket(client, a.manager, tel),
		scanOpts,
		tel,
	)

	return a, nil
}

// scan logs in if needed, runs the rules and hands the matches to the
// notifier. Nothing is notified when the scan failed.
func (a *app) scan(ctx context.Context, rules []scanner.Rule, notifier scanner.Notifier) (scanner.Result, error) {
	err := a.manager.EnsureAuthenticated(ctx)
	if err != nil {
		return scanner.Result{}, err
	}

	result, err := a.scanner.Scan(ctx, rules)
	if err != nil {
		return result, err
	}
	for _, r := range result.Rules {
		slog.Info(
			"rule scanned",
			"rule", r.Title,
			"pages", r.Pages,
			"listings", r.Listings,
			"matches", len(r.Messages),
		)
	}
	if len(result.Messages) == 0 {
		return result, nil
	}

	err = notifier.Notify(ctx, scanner.Batch{
		Mention:  a.config.Mention,
		Messages: result.Messages,
	})
	if err != nil {
		return result, fmt.Errorf("notify: %w", err)
	}
	return result, nil
}

func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	errs = append(errs, a.otel.Shutdown(context.Background()))
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintln(os.Stderr, "close:", err)
	}
}
