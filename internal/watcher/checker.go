// Package watcher runs the poll cycle: read the top score, compare it with the
// stored baseline, announce improvements.
package watcher

import (
	"context"
	"time"

	"github.com/google/uuid"

	"lbwatch/internal/leaderboard"
	"lbwatch/internal/notifier"
	"lbwatch/internal/storage"
	logx "lbwatch/pkg/logx"
)

// Outcome is the result of one cycle.
type Outcome string

const (
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeBaseline    Outcome = "baseline"
	OutcomeImproved    Outcome = "improved"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomePanic       Outcome = "panic"
)

// Source returns the current top entry; false means unavailable this cycle.
type Source interface {
	Top(ctx context.Context, competition string) (leaderboard.Entry, bool)
}

// Sender delivers a text notification.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Recorder receives cycle metrics. *metrics.Recorder implements it.
type Recorder interface {
	ObserveCycle(outcome string, took time.Duration)
	ObserveScores(current, stored float64, hasStored bool)
	SetStored(v float64)
	ObserveNotification(err error)
	ObserveStoreError(op string)
}

// Checker runs single poll cycles. It holds no state between cycles other
// than what the Store persists.
type Checker struct {
	competition string
	source      Source
	store       storage.Store
	sender      Sender
	metrics     Recorder
	log         logx.Logger
}

func NewChecker(competition string, source Source, store storage.Store, sender Sender, rec Recorder, log logx.Logger) *Checker {
	if rec == nil {
		rec = nopRecorder{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Checker{
		competition: competition,
		source:      source,
		store:       store,
		sender:      sender,
		metrics:     rec,
		log:         log,
	}
}

// Check runs one cycle and reports its outcome. It never fails: every error
// is logged and ends the cycle early.
func (c *Checker) Check(ctx context.Context) Outcome {
	start := time.Now()
	log := c.log.With(logx.String("cycle", uuid.NewString()))
	out := c.check(ctx, log)
	took := time.Since(start)
	c.metrics.ObserveCycle(string(out), took)
	log.Debug("cycle finished", logx.String("outcome", string(out)), logx.Duration("took", took))
	return out
}

func (c *Checker) check(ctx context.Context, log logx.Logger) Outcome {
	cur, ok := c.source.Top(ctx, c.competition)
	if !ok {
		log.Info("unable to retrieve a valid best score; skipping this cycle")
		return OutcomeUnavailable
	}
	log.Info("current best kernel",
		logx.String("title", cur.Title),
		logx.Float64("score", cur.Score),
		logx.String("score_source", string(cur.Source)),
	)

	stored, hasStored, err := c.store.Load(ctx)
	if err != nil {
		c.metrics.ObserveStoreError("load")
		log.Warn("error reading stored score; treating as none", logx.Err(err))
		hasStored = false
	}
	c.metrics.ObserveScores(cur.Score, stored, hasStored)

	if !hasStored {
		log.Info("no stored best score; saving current as baseline", logx.Float64("score", cur.Score))
		c.save(ctx, log, cur.Score)
		return OutcomeBaseline
	}
	log.Info("previously stored best score", logx.Float64("score", stored))

	if cur.Score <= stored {
		log.Info("no new best score; no notification sent")
		return OutcomeUnchanged
	}

	msg := notifier.NewHighScoreMessage(cur.Title, storage.FormatScore(cur.Score))
	err = c.sender.Send(ctx, msg)
	c.metrics.ObserveNotification(err)
	if err != nil {
		log.Warn("new best score notification failed", logx.Err(err))
	}
	c.save(ctx, log, cur.Score)
	return OutcomeImproved
}

func (c *Checker) save(ctx context.Context, log logx.Logger, score float64) {
	if err := c.store.Save(ctx, score); err != nil {
		c.metrics.ObserveStoreError("save")
		log.Warn("error saving best score", logx.Err(err))
		return
	}
	c.metrics.SetStored(score)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCycle(string, time.Duration) {}
func (nopRecorder) ObserveScores(float64, float64, bool) {}
func (nopRecorder) SetStored(float64) {}
func (nopRecorder) ObserveNotification(error) {}
func (nopRecorder) ObserveStoreError(string) {}
