package chrono

import (
	"fmt"
	"marketwatch/internal/components/telemetry"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronAPI runs callbacks on cron schedules.
type CronAPI interface {
	Cron(spec string, callback func()) error
	Stop()
}

// NextRun parses a standard 5 field spec or a descriptor like `@every 5m`
// and returns the first activation after `from`.
func NextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return schedule.Next(from), nil
}

// StandardCron schedules on robfig/cron. A tick that fires while the
// previous run of the same callback has not returned is skipped.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("cron", tel)}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		),
	)
	c.Start()
	return StandardCron{cron: c}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return nil
}

// Stop stops the scheduler and waits for a running callback to return.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger forwards robfig/cron's logr style logging to telemetry.
type cronLogger struct {
	tel telemetry.API
}

func pairs(keysAndValues []any) string {
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(msg, pairs(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken("job", fmt.Errorf("%s: %w", msg, err), pairs(keysAndValues))
}
