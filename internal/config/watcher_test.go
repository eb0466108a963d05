package config_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/technosupport/secops/internal/config"
)

func TestWatcher_CheckNowOnlyOnNewerMtime(t *testing.T) {
	path := writeFile(t, sampleYAML)
	var calls int32
	w := config.NewWatcher(path, func(string) { atomic.AddInt32(&calls, 1) })

	assert.False(t, w.CheckNow(), "unchanged file must not reload")

	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.True(t, w.CheckNow())
	assert.False(t, w.CheckNow())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWatcher_MissingFile(t *testing.T) {
	w := config.NewWatcher("/nonexistent/secops.yaml", func(string) { t.Fatal("unexpected reload") })
	assert.False(t, w.CheckNow())
}

func TestWatch_PollingPicksUpChange(t *testing.T) {
	path := writeFile(t, sampleYAML)
	reloaded := make(chan string, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := config.NewWatcher(path, func(p string) { reloaded <- p })
	w.PollInterval = 20 * time.Millisecond
	w.Start(ctx)

	later := time.Now().Add(5 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	select {
	case p := <-reloaded:
		assert.Equal(t, path, p)
	case <-time.After(2 * time.Second):
		t.Fatal("change not detected")
	}
}
