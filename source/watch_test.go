package source

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestWatchedCachesUntilFileChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := writeFile(t, "sales.csv", smallCSV)
	w := NewWatched(&File{Path: path}, WithDebounce(20*time.Millisecond), WithWatchLogger(zaptest.NewLogger(t)))
	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second Start is a no-op")

	first, err := w.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	again, err := w.Load(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again, "served from cache")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("Livro,livros,12.00,01/06/2023,Ana,SP,Sudeste,-22.19,-48.79,x\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool {
		ds, err := w.Load(ctx)
		return err == nil && ds.Len() == 3
	}, 5*time.Second, 20*time.Millisecond)

	w.Stop()
	w.Stop()
}

func TestWatchedInvalidate(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "sales.csv", smallCSV)
	w := NewWatched(&File{Path: path})

	first, err := w.Load(ctx)
	require.NoError(t, err)

	w.Invalidate()
	second, err := w.Load(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Len(), second.Len())
}

func TestWatchedLoadErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "sales.csv", "not,a,dataset\n")
	w := NewWatched(&File{Path: path})

	_, err := w.Load(ctx)
	var le *LoadError
	require.ErrorAs(t, err, &le)

	require.NoError(t, os.WriteFile(path, []byte(smallCSV), 0o644))
	ds, err := w.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}
