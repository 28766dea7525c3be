package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "lbwatch/pkg/logx"
)

func openTestStore(t *testing.T, driver, name string) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", name)
	st, err := Open(Config{Driver: driver, Path: path}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func TestStoreRoundTrip(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			st, _ := openTestStore(t, driver, "best_score")
			ctx := context.Background()

			_, ok, err := st.Load(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, st.Save(ctx, 0.5))
			require.NoError(t, st.Save(ctx, 0.694))

			v, ok, err := st.Load(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 0.694, v)
		})
	}
}

func TestFileStoreFormat(t *testing.T) {
	st, path := openTestStore(t, "file", "best_score.txt")
	require.NoError(t, st.Save(context.Background(), 0.6))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0.6", string(b))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreReadsLegacyContent(t *testing.T) {
	st, path := openTestStore(t, "file", "best_score.txt")
	require.NoError(t, os.WriteFile(path, []byte("  0.71\n"), 0o644))

	v, ok, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.71, v)
}

func TestFileStoreMalformed(t *testing.T) {
	st, path := openTestStore(t, "file", "best_score.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a number"), 0o644))

	_, ok, err := st.Load(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
	assert.False(t, ok)
}

func TestClosedStore(t *testing.T) {
	st, _ := openTestStore(t, "file", "best_score.txt")
	require.NoError(t, st.Close())
	require.ErrorIs(t, st.Save(context.Background(), 1), ErrClosed)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis", Path: "x"}, logx.Nop())
	require.Error(t, err)
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "0.694", FormatScore(0.694))
	assert.Equal(t, "12", FormatScore(12))
}
