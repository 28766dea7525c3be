package kaggle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "lbwatch/pkg/logx"
)

func TestListKernelsQueryAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/kernels/list", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "drawing-with-llms", q.Get("competition"))
		assert.Equal(t, "scoreDescending", q.Get("sortBy"))
		assert.Equal(t, "python", q.Get("language"))
		assert.Equal(t, "all", q.Get("outputType"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Empty(t, q.Get("pageSize"))

		user, key, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", key)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"ref":"alice/top","title":"[LB 0.694] Best Model","totalVotes":12},
			{"ref":"bob/two","title":"Second","publicScore":"0.61","score":null}
		]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/api/v1/", Credentials: Credentials{Username: "alice", Key: "secret"}}, logx.Nop())
	require.NoError(t, err)

	ks, err := c.ListKernels(context.Background(), ListOptions{
		Competition: "drawing-with-llms",
		Language:    "python",
		OutputType:  OutputAll,
		SortBy:      SortScoreDescending,
		Page:        1,
	})
	require.NoError(t, err)
	require.Len(t, ks, 2)
	assert.Equal(t, "alice/top", ks[0].Ref)
	assert.False(t, ks[0].PublicScore.Valid)
	assert.Equal(t, 12, ks[0].TotalVotes)
	assert.True(t, ks[1].PublicScore.Valid)
	assert.InDelta(t, 0.61, ks[1].PublicScore.Value, 1e-12)
	assert.False(t, ks[1].Score.Valid)
}

func TestListKernelsAnonymous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, ok := r.BasicAuth()
		assert.False(t, ok)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	ks, err := c.ListKernels(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, ks)
}

func TestListKernelsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	_, err = c.ListKernels(context.Background(), ListOptions{Competition: "x"})
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Body)
}

func TestListKernelsBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, logx.Nop())
	require.NoError(t, err)
	_, err = c.ListKernels(context.Background(), ListOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode kernels")
}

func TestNewRejectsEmptyBase(t *testing.T) {
	_, err := New(Config{}, logx.Nop())
	require.Error(t, err)
}

func TestScoreUnmarshal(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
		want  float64
	}{
		{raw: `0.5`, valid: true, want: 0.5},
		{raw: `"0.75"`, valid: true, want: 0.75},
		{raw: `""`},
		{raw: `null`},
		{raw: `"N/A"`},
	}
	for _, tt := range tests {
		var s Score
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &s), tt.raw)
		assert.Equal(t, tt.valid, s.Valid, tt.raw)
		assert.InDelta(t, tt.want, s.Value, 1e-12, tt.raw)
	}

	var s Score
	require.Error(t, json.Unmarshal([]byte(`{"v":1}`), &s))
}

func TestResolveCredentialsOrder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDir, dir)
	t.Setenv(envUsername, "")
	t.Setenv(envKey, "")

	got, err := ResolveCredentials(Credentials{})
	require.NoError(t, err)
	assert.False(t, got.Valid())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "kaggle.json"), []byte(`{"username":"file","key":"k1"}`), 0o600))
	got, err = ResolveCredentials(Credentials{})
	require.NoError(t, err)
	assert.Equal(t, "file", got.Username)

	got, err = ResolveCredentials(Credentials{Username: "cfg", Key: "k2"})
	require.NoError(t, err)
	assert.Equal(t, "cfg", got.Username)
	assert.Equal(t, "config", got.Source)

	t.Setenv(envUsername, "envuser")
	t.Setenv(envKey, "k3")
	got, err = ResolveCredentials(Credentials{Username: "cfg", Key: "k2"})
	require.NoError(t, err)
	assert.Equal(t, "envuser", got.Username)
	assert.Equal(t, "env", got.Source)
}

func TestResolveCredentialsBadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envConfigDir, dir)
	t.Setenv(envUsername, "")
	t.Setenv(envKey, "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kaggle.json"), []byte(`{"username":"only"}`), 0o600))

	_, err := ResolveCredentials(Credentials{})
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LBWATCH_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("LBWATCH_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("LBWATCH_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "loaded", os.Getenv("LBWATCH_TEST_DOTENV"))
}
