package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherDisabledOutsideDevelopment(t *testing.T) {
	cfg := &Config{Environment: Production}
	w, err := NewWatcher(cfg, "/tmp/overlay.yaml", zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	assert.Same(t, cfg, w.Config())
}

func TestWatcherReloadsOnOverlayChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_traversal_depth: 10\n"), 0o644))
	t.Setenv("ENVIRONMENT", Development)
	t.Setenv("CONFIG_FILE", path)

	initial, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 10, initial.MaxTraversalDepth)

	w, err := NewWatcher(initial, path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	reloaded := make(chan *Config, 1)
	w.OnReload(func(cfg *Config) { reloaded <- cfg })

	require.NoError(t, os.WriteFile(path, []byte("max_traversal_depth: 25\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 25, cfg.MaxTraversalDepth)
		assert.Equal(t, 25, w.Config().MaxTraversalDepth)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback was not invoked")
	}
}
