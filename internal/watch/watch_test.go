package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startWatcher runs w in the background and stops it when the test ends
func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func counter(runs *atomic.Int32) func(context.Context) error {
	return func(context.Context) error {
		runs.Add(1)
		return nil
	}
}

func TestWatch_RunsOnStartAndOnChange(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32

	startWatcher(t, &Watcher{Root: root, Debounce: 50 * time.Millisecond, Run: counter(&runs)})
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatch_CoalescesBursts(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32

	startWatcher(t, &Watcher{Root: root, Debounce: 300 * time.Millisecond, Run: counter(&runs)})
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond)

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(2), runs.Load())
}

func TestWatch_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32

	startWatcher(t, &Watcher{Root: root, Debounce: 50 * time.Millisecond, Run: counter(&runs)})
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	album := filepath.Join(root, "iceland")
	require.NoError(t, os.Mkdir(album, 0755))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(album, "a.jpg"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return runs.Load() == 3 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatch_FailedRunKeepsWatching(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32

	startWatcher(t, &Watcher{
		Root:     root,
		Debounce: 50 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return errors.New("corrupt picture")
		},
	})
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0644))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestIgnored(t *testing.T) {
	root := filepath.FromSlash("/pics")
	w := &Watcher{
		Root:        root,
		ExcludeDirs: []string{".gallery"},
		Exclude:     []string{filepath.FromSlash("/pics/html/"), filepath.FromSlash("/pics/html.build")},
	}

	assert.True(t, w.ignored(filepath.FromSlash("/pics/.gallery/catalog.db")))
	assert.True(t, w.ignored(filepath.FromSlash("/pics/html")))
	assert.True(t, w.ignored(filepath.FromSlash("/pics/html/img/a.jpg")))
	assert.True(t, w.ignored(filepath.FromSlash("/pics/html.build")))
	assert.False(t, w.ignored(filepath.FromSlash("/pics/htmlx/a.jpg")))
	assert.False(t, w.ignored(filepath.FromSlash("/pics/iceland/a.jpg")))
}
