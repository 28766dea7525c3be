package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	logx "lbwatch/pkg/logx"
)

// Cycle is one poll iteration. *Checker implements it.
type Cycle interface {
	Check(ctx context.Context) Outcome
}

// Runner repeats a Cycle on a schedule until its context is cancelled.
type Runner struct {
	cycle    Cycle
	schedule cron.Schedule
	loc      *time.Location
	log      logx.Logger
}

func NewRunner(cycle Cycle, schedule cron.Schedule, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{cycle: cycle, schedule: schedule, loc: time.Local, log: log}
}

// Run executes one cycle immediately, then one per schedule tick. A cycle
// that is still running when the next tick fires makes that tick a no-op.
// Run returns after ctx is cancelled and the running cycle, if any, is done.
func (r *Runner) Run(ctx context.Context) error {
	if r.schedule == nil {
		return fmt.Errorf("watcher: schedule is nil")
	}

	r.RunOnce(ctx)
	if ctx.Err() != nil {
		return nil
	}

	cl := cronLogger{log: r.log.With(logx.String("comp", "cron"))}
	c := cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)
	var id cron.EntryID
	id = c.Schedule(r.schedule, cron.FuncJob(func() {
		r.RunOnce(ctx)
		if next := c.Entry(id).Next; !next.IsZero() {
			r.log.Info("waiting before next check", logx.Duration("in", time.Until(next).Round(time.Second)))
		}
	}))
	c.Start()
	if next := r.schedule.Next(time.Now().In(r.loc)); !next.IsZero() {
		r.log.Info("waiting before next check", logx.Duration("in", time.Until(next).Round(time.Second)))
	}

	<-ctx.Done()
	<-c.Stop().Done()
	r.log.Info("poll loop stopped")
	return nil
}

// RunOnce runs a single cycle and recovers a panic inside it, so one bad
// cycle never takes the loop down.
func (r *Runner) RunOnce(ctx context.Context) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("error in poll cycle",
				logx.String("panic", fmt.Sprint(rec)),
				logx.Stack(logx.StackTrace(3, 24)),
			)
			out = OutcomePanic
		}
	}()
	return r.cycle.Check(ctx)
}

// cronLogger adapts logx to cron.Logger. Cron's info lines are noisy, so
// they go to debug.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
