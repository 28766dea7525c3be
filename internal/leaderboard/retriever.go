package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"lbwatch/internal/kaggle"
	logx "lbwatch/pkg/logx"
)

var (
	// ErrNoEntries means the listing came back empty.
	ErrNoEntries = errors.New("leaderboard: no entries")
	// ErrNoScore means the top entry had neither a score field nor an "[LB x]" title tag.
	ErrNoScore = errors.New("leaderboard: top entry has no score")
)

// ScoreSource says where Entry.Score was read from.
type ScoreSource string

const (
	SourcePublicScore ScoreSource = "public_score"
	SourceScore       ScoreSource = "score"
	SourceTitle       ScoreSource = "title"
)

// Entry is the resolved top leaderboard entry.
type Entry struct {
	Ref    string
	Title  string
	Score  float64
	Source ScoreSource
}

// Lister lists competition kernels. *kaggle.Client implements it.
type Lister interface {
	ListKernels(ctx context.Context, opt kaggle.ListOptions) ([]kaggle.Kernel, error)
}

// Retriever resolves the current best score of a competition.
type Retriever struct {
	lister   Lister
	language string
	log      logx.Logger
}

func NewRetriever(lister Lister, language string, log logx.Logger) *Retriever {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Retriever{lister: lister, language: language, log: log}
}

// Top returns the highest-ranked entry, or false when none is available.
// Failures are logged and never returned; see Resolve for the error.
func (r *Retriever) Top(ctx context.Context, competition string) (Entry, bool) {
	e, err := r.Resolve(ctx, competition)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoEntries):
			r.log.Info("no kernels found", logx.String("competition", competition))
		case errors.Is(err, ErrNoScore):
			r.log.Info("no score found for the top kernel", logx.String("competition", competition), logx.String("title", e.Title))
		default:
			r.log.Warn("retrieving kernels failed", logx.String("competition", competition), logx.Err(err))
		}
		return Entry{}, false
	}
	return e, true
}

// Resolve lists kernels sorted by descending score and resolves the first
// entry's score: publicScore, then score, then the title tag. On ErrNoScore the
// returned Entry still carries the title.
func (r *Retriever) Resolve(ctx context.Context, competition string) (Entry, error) {
	ks, err := r.lister.ListKernels(ctx, kaggle.ListOptions{
		Competition: competition,
		Language:    r.language,
		KernelType:  kaggle.KernelTypeAll,
		OutputType:  kaggle.OutputAll,
		SortBy:      kaggle.SortScoreDescending,
		Page:        1,
		PageSize:    20,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("list %s: %w", competition, err)
	}
	if len(ks) == 0 {
		return Entry{}, ErrNoEntries
	}

	top := ks[0]
	r.log.Debug("top kernel",
		logx.String("ref", top.Ref),
		logx.String("title", top.Title),
		logx.String("author", top.Author),
		logx.Int("votes", top.TotalVotes),
	)

	e := Entry{Ref: top.Ref, Title: top.Title}
	switch {
	case top.PublicScore.Valid:
		e.Score, e.Source = top.PublicScore.Value, SourcePublicScore
	case top.Score.Valid:
		e.Score, e.Source = top.Score.Value, SourceScore
	default:
		v, ok := ExtractTitleScore(top.Title)
		if !ok {
			return e, ErrNoScore
		}
		e.Score, e.Source = v, SourceTitle
		r.log.Debug("score extracted from title", logx.Float64("score", v))
	}
	return e, nil
}
