package commands

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cards.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("name: a\n"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 20*time.Millisecond, func() { calls.Add(1) })
	}()

	// The watcher starts asynchronously; keep writing until a change is seen.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(other, []byte("ignored"), 0600)
		_ = os.WriteFile(path, []byte("name: b\n"), 0600)
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchFile did not stop after cancel")
	}
}

func TestWatchFile_MissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "cards.yaml")

	err := watchFile(context.Background(), missing, time.Millisecond, func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
