package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbwatch/internal/kaggle"
	logx "lbwatch/pkg/logx"
)

type fakeLister struct {
	kernels []kaggle.Kernel
	err     error
	got     kaggle.ListOptions
}

func (f *fakeLister) ListKernels(_ context.Context, opt kaggle.ListOptions) ([]kaggle.Kernel, error) {
	f.got = opt
	return f.kernels, f.err
}

func score(v float64) kaggle.Score { return kaggle.Score{Value: v, Valid: true} }

func TestRetrieverTitleFallback(t *testing.T) {
	fl := &fakeLister{kernels: []kaggle.Kernel{{Ref: "a/b", Title: "[LB 0.694] Best Model"}, {Title: "[LB 0.9] ignored"}}}
	r := NewRetriever(fl, "python", logx.Nop())

	e, ok := r.Top(context.Background(), "drawing-with-llms")
	require.True(t, ok)
	assert.InDelta(t, 0.694, e.Score, 1e-12)
	assert.Equal(t, SourceTitle, e.Source)
	assert.Equal(t, "[LB 0.694] Best Model", e.Title)

	assert.Equal(t, "drawing-with-llms", fl.got.Competition)
	assert.Equal(t, "python", fl.got.Language)
	assert.Equal(t, kaggle.SortScoreDescending, fl.got.SortBy)
	assert.Equal(t, kaggle.OutputAll, fl.got.OutputType)
}

func TestRetrieverFieldPrecedence(t *testing.T) {
	fl := &fakeLister{kernels: []kaggle.Kernel{{Title: "[LB 0.1] x", PublicScore: score(0.8), Score: score(0.7)}}}
	e, err := NewRetriever(fl, "python", logx.Nop()).Resolve(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, SourcePublicScore, e.Source)
	assert.InDelta(t, 0.8, e.Score, 1e-12)

	fl.kernels[0].PublicScore = kaggle.Score{}
	e, err = NewRetriever(fl, "python", logx.Nop()).Resolve(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, SourceScore, e.Source)
	assert.InDelta(t, 0.7, e.Score, 1e-12)
}

func TestRetrieverUnavailable(t *testing.T) {
	tests := []struct {
		name string
		fl   *fakeLister
		want error
	}{
		{name: "empty", fl: &fakeLister{}, want: ErrNoEntries},
		{name: "no score", fl: &fakeLister{kernels: []kaggle.Kernel{{Title: "Best Model"}}}, want: ErrNoScore},
		{name: "list error", fl: &fakeLister{err: kaggle.ErrUnauthorized}, want: kaggle.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(tt.fl, "python", logx.Nop())
			_, err := r.Resolve(context.Background(), "c")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			e, ok := r.Top(context.Background(), "c")
			assert.False(t, ok)
			assert.Equal(t, Entry{}, e)
		})
	}
}
