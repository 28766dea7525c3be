package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"lbwatch/internal/config"
	"lbwatch/internal/kaggle"
	"lbwatch/internal/leaderboard"
	"lbwatch/internal/metrics"
	"lbwatch/internal/notifier"
	"lbwatch/internal/runtime/supervisor"
	"lbwatch/internal/storage"
	"lbwatch/internal/watcher"
	logx "lbwatch/pkg/logx"
)

// App owns every long-lived component of the watcher process.
type App struct {
	cfg *config.Config

	log       logx.Logger
	logCloser io.Closer

	store      storage.Store
	rec        *metrics.Recorder
	metricsSrv *metrics.Server
	runner     *watcher.Runner

	sup *supervisor.Supervisor
}

type Option func(*options)

type options struct {
	log logx.Logger
}

// WithLogger replaces the logger that would otherwise be built from the
// logging section of the config.
func WithLogger(log logx.Logger) Option {
	return func(o *options) { o.log = log }
}

// New wires the components described by cfg. Nothing runs until Start or
// RunOnce.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	log := o.log
	var logCloser io.Closer = nopCloser{}
	if log.IsZero() {
		l, c, err := logx.New(cfg.LogConfig())
		if err != nil {
			return nil, err
		}
		log, logCloser = l, c
	}
	log = log.With(logx.String("competition", cfg.Competition))

	sched, err := watcher.ParseSchedule(cfg.Interval.String())
	if err != nil {
		return nil, fmt.Errorf("INTERVAL: %w", err)
	}

	creds, err := kaggle.ResolveCredentials(kaggle.Credentials{
		Username: cfg.KaggleUsername,
		Key:      cfg.KaggleKey,
	})
	switch {
	case err != nil:
		log.Warn("kaggle credentials unusable; listing anonymously", logx.Err(err))
	case !creds.Valid():
		log.Warn("no kaggle credentials found; listing anonymously")
	default:
		log.Info("kaggle credentials loaded", logx.String("source", creds.Source))
	}

	client, err := kaggle.New(kaggle.Config{
		BaseURL:     cfg.KaggleAPIBase,
		Credentials: creds,
	}, log.With(logx.String("comp", "kaggle")))
	if err != nil {
		return nil, err
	}
	source := leaderboard.NewRetriever(client, cfg.Language, log.With(logx.String("comp", "leaderboard")))

	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	sender, err := notifier.NewTelegram(notifier.Config{
		Token:   cfg.TelegramBotToken,
		ChatID:  cfg.TelegramChatID.String(),
		APIBase: cfg.TelegramAPIBase,
	}, log.With(logx.String("comp", "notifier")))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	rec := metrics.New(cfg.Competition)
	var srv *metrics.Server
	if cfg.Metrics.Enabled {
		srv = metrics.NewServer(rec, log)
		if cfg.Metrics.Pprof {
			srv.EnablePprof()
		}
	}

	checker := watcher.NewChecker(cfg.Competition, source, store, sender, rec, log.With(logx.String("comp", "checker")))
	runner := watcher.NewRunner(checker, sched, log.With(logx.String("comp", "poller")))

	log.Info("watcher configured",
		logx.String("schedule", sched.String()),
		logx.String("storage", cfg.Storage.Driver),
		logx.String("language", cfg.Language),
	)

	return &App{
		cfg:        cfg,
		log:        log.With(logx.String("comp", "app")),
		logCloser:  logCloser,
		store:      store,
		rec:        rec,
		metricsSrv: srv,
		runner:     runner,
	}, nil
}

// Start launches the poll loop and the optional metrics endpoint, then
// reports readiness to systemd. It returns once everything is running.
func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app: already started")
	}
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Start(a.cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	a.sup.GoRestart("poller", a.runner.Run,
		supervisor.WithRestartBackoff(time.Second, time.Minute),
		supervisor.WithMaxRestarts(10),
	)
	a.sup.Go0("systemd.watchdog", func(c context.Context) { watchdog(c, a.log) })

	notifySystemd(a.log, sdReady)
	a.log.Info("started")
	return nil
}

// RunOnce runs a single poll cycle in the calling goroutine.
func (a *App) RunOnce(ctx context.Context) watcher.Outcome {
	return a.runner.RunOnce(ctx)
}

// Done is closed when the poll loop stops, either because the parent context
// was cancelled or because of a fatal error.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed while running, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// MetricsAddr is the bound metrics address, or "" when disabled.
func (a *App) MetricsAddr() string {
	if a.metricsSrv == nil {
		return ""
	}
	return a.metricsSrv.Addr()
}

// Stop shuts everything down in reverse start order. It is safe to call when
// Start was never called.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.sup != nil {
		notifySystemd(a.log, sdStopping)
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if a.metricsSrv != nil {
		a.metricsSrv.Stop(ctx)
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	a.log.Info("stopped")
	if err := a.logCloser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
