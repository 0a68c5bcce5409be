package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, StoreMemory, cfg.StoreType)
	assert.Equal(t, 10, cfg.MaxTraversalDepth)
	assert.Equal(t, 5, cfg.DefaultRecommendationLimit)
	assert.True(t, cfg.RejectPrerequisiteCycles)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("STORE_TYPE", StoreDynamoDB)
	t.Setenv("TABLE_NAME", "graph-test")
	t.Setenv("MAX_TRAVERSAL_DEPTH", "4")
	t.Setenv("REJECT_PREREQUISITE_CYCLES", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDynamoDB, cfg.StoreType)
	assert.Equal(t, "graph-test", cfg.DynamoDBTable)
	assert.Equal(t, 4, cfg.MaxTraversalDepth)
	assert.False(t, cfg.RejectPrerequisiteCycles)
}

func TestYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_traversal_depth: 7\nlog_level: debug\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.MaxTraversalDepth)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, ":8080", cfg.ServerAddress)
}

func TestValidate(t *testing.T) {
	t.Run("UnknownStoreType", func(t *testing.T) {
		t.Setenv("STORE_TYPE", "postgres")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("MemoryStoreRejectedInProduction", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", Production)
		t.Setenv("STORE_TYPE", StoreMemory)
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("NonPositiveDepth", func(t *testing.T) {
		t.Setenv("MAX_TRAVERSAL_DEPTH", "0")
		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("MalformedIntFallsBack", func(t *testing.T) {
		t.Setenv("MAX_TRAVERSAL_DEPTH", "plenty")
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.MaxTraversalDepth)
	})
}
