package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault_MatchesSpecConstants(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1000, cfg.HotCacheCapacity)
	assert.Equal(t, 500, cfg.HistoryCacheCapacity)
	assert.Equal(t, 200, cfg.HistoryMaxPerItem)
	assert.Equal(t, 200*time.Millisecond, cfg.AccidentalThreshold)
	assert.Equal(t, 5_000.0, cfg.MinIntervalMillis)
}

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	os.Setenv("REVIEWCORE_HOT_CACHE_CAPACITY", "42")
	os.Setenv("REVIEWCORE_ACCIDENTAL_THRESHOLD_MS", "250")
	os.Setenv("REVIEWCORE_DATA_DIR", "/tmp/reviewcore-test")
	defer os.Unsetenv("REVIEWCORE_HOT_CACHE_CAPACITY")
	defer os.Unsetenv("REVIEWCORE_ACCIDENTAL_THRESHOLD_MS")
	defer os.Unsetenv("REVIEWCORE_DATA_DIR")

	cfg := Load()
	assert.Equal(t, 42, cfg.HotCacheCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.AccidentalThreshold)
	assert.Equal(t, "/tmp/reviewcore-test", cfg.DataDir)
}

func TestLoad_IgnoresInvalidOverrides(t *testing.T) {
	os.Setenv("REVIEWCORE_HOT_CACHE_CAPACITY", "not-a-number")
	defer os.Unsetenv("REVIEWCORE_HOT_CACHE_CAPACITY")

	cfg := Load()
	assert.Equal(t, Default().HotCacheCapacity, cfg.HotCacheCapacity)
}
