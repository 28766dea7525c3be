package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbwatch/internal/config"
	"lbwatch/internal/watcher"
	logx "lbwatch/pkg/logx"
)

type fakeKaggle struct {
	mu    sync.Mutex
	title string
	score string
	calls int
}

func (f *fakeKaggle) set(title, score string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title, f.score = title, score
}

func (f *fakeKaggle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/kernels/list" {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `[{"ref":"me/kernel","title":%q,"publicScore":%q}]`, f.title, f.score)
}

type fakeTelegram struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/bottest-token/sendMessage" || r.ParseForm() != nil {
		http.Error(w, `{"ok":false,"description":"bad request"}`, http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, r.PostForm.Get("text"))
	f.mu.Unlock()
	_, _ = io.WriteString(w, `{"ok":true}`)
}

func (f *fakeTelegram) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

type harness struct {
	kaggle    *fakeKaggle
	telegram  *fakeTelegram
	scorePath string
}

func newHarness(t *testing.T, extra string) (*harness, *config.Config) {
	t.Helper()
	t.Setenv("KAGGLE_USERNAME", "user")
	t.Setenv("KAGGLE_KEY", "key")

	h := &harness{kaggle: &fakeKaggle{}, telegram: &fakeTelegram{}}
	ks := httptest.NewServer(h.kaggle)
	t.Cleanup(ks.Close)
	ts := httptest.NewServer(h.telegram)
	t.Cleanup(ts.Close)

	h.scorePath = filepath.Join(t.TempDir(), "best_score.txt")
	raw := fmt.Sprintf(`{
		"COMPETITION": "drawing-with-llms",
		"TELEGRAM_BOT_TOKEN": "test-token",
		"TELEGRAM_CHAT_ID": 12345,
		"storage": {"path": %q},
		"kaggle_api_base": %q,
		"telegram_api_base": %q%s
	}`, h.scorePath, ks.URL, ts.URL, extra)
	cfg, err := config.Parse("config.json", []byte(raw))
	require.NoError(t, err)
	return h, cfg
}

func TestRunOnceBaselineThenImprovement(t *testing.T) {
	h, cfg := newHarness(t, "")
	a, err := New(cfg, WithLogger(logx.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	ctx := context.Background()

	h.kaggle.set("[LB 0.5] First", "0.5")
	assert.Equal(t, watcher.OutcomeBaseline, a.RunOnce(ctx))
	assert.Empty(t, h.telegram.messages())

	h.kaggle.set("[LB 0.6] Second", "0.6")
	assert.Equal(t, watcher.OutcomeImproved, a.RunOnce(ctx))
	msgs := h.telegram.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New best kernel published!\nTitle: [LB 0.6] Second\nScore: 0.6", msgs[0])

	h.kaggle.set("[LB 0.55] Third", "0.55")
	assert.Equal(t, watcher.OutcomeUnchanged, a.RunOnce(ctx))
	assert.Len(t, h.telegram.messages(), 1)

	b, err := os.ReadFile(h.scorePath)
	require.NoError(t, err)
	assert.Equal(t, "0.6", string(b))
}

func TestStartServesMetricsAndStops(t *testing.T) {
	h, cfg := newHarness(t, `, "INTERVAL": "1h", "metrics": {"enabled": true, "addr": "127.0.0.1:0"}`)
	h.kaggle.set("[LB 0.42] Only", "")

	a, err := New(cfg, WithLogger(logx.Nop()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	addr := a.MetricsAddr()
	require.NotEmpty(t, addr)

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return strings.Contains(string(b), `outcome="baseline"`)
	}, 5*time.Second, 50*time.Millisecond)

	b, err := os.ReadFile(h.scorePath)
	require.NoError(t, err)
	assert.Equal(t, "0.42", string(b))

	cancel()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("app did not observe cancellation")
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx))
	assert.NoError(t, a.Err())
	assert.Empty(t, a.MetricsAddr())
}

func TestNewRejectsBadInterval(t *testing.T) {
	_, cfg := newHarness(t, `, "INTERVAL": "every now and then"`)
	_, err := New(cfg, WithLogger(logx.Nop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERVAL")
}

func TestStartTwiceFails(t *testing.T) {
	_, cfg := newHarness(t, `, "INTERVAL": "1h"`)
	a, err := New(cfg, WithLogger(logx.Nop()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	assert.Error(t, a.Start(ctx))
	require.NoError(t, a.Stop(context.Background()))
}
