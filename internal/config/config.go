// Package config centralizes the §6 configuration constants into one
// loadable struct instead of scattering os.Getenv reads across every
// package that needs a tunable. Load resolves a .env file via godotenv
// and then applies environment variable overrides on top of Default().
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable named in spec.md §6.
type Config struct {
	HotCacheCapacity     int
	HistoryCacheCapacity int
	HistoryMaxPerItem    int

	AccidentalThreshold time.Duration
	DoubleTapThreshold  time.Duration
	LongPressThreshold  time.Duration

	FlingDistancePX       float64
	FlingVelocityPXPerSec float64

	BaseIntervalMillis float64
	MinIntervalMillis  float64

	BatchInterval      time.Duration
	BatchSizeThreshold int
	AutoSaveInterval   time.Duration

	PeriodicReviewCheckInterval   time.Duration
	BackgroundReturnCheckInterval time.Duration

	DataDir string
}

// Default returns the §6 defaults.
func Default() Config {
	return Config{
		HotCacheCapacity:     1000,
		HistoryCacheCapacity: 500,
		HistoryMaxPerItem:    200,

		AccidentalThreshold: 200 * time.Millisecond,
		DoubleTapThreshold:  300 * time.Millisecond,
		LongPressThreshold:  500 * time.Millisecond,

		FlingDistancePX:       100,
		FlingVelocityPXPerSec: 50,

		BaseIntervalMillis: 10_000,
		MinIntervalMillis:  5_000,

		BatchInterval:      5 * time.Second,
		BatchSizeThreshold: 10,
		AutoSaveInterval:   30 * time.Second,

		PeriodicReviewCheckInterval:   60 * time.Second,
		BackgroundReturnCheckInterval: 30 * time.Second,

		DataDir: "data",
	}
}

// Load applies a .env file (if present, via godotenv) and then environment
// overrides on top of Default(). A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	overrideInt(&cfg.HotCacheCapacity, "REVIEWCORE_HOT_CACHE_CAPACITY")
	overrideInt(&cfg.HistoryCacheCapacity, "REVIEWCORE_HISTORY_CACHE_CAPACITY")
	overrideInt(&cfg.HistoryMaxPerItem, "REVIEWCORE_HISTORY_MAX_PER_ITEM")
	overrideDuration(&cfg.AccidentalThreshold, "REVIEWCORE_ACCIDENTAL_THRESHOLD_MS")
	overrideDuration(&cfg.DoubleTapThreshold, "REVIEWCORE_DOUBLE_TAP_THRESHOLD_MS")
	overrideDuration(&cfg.LongPressThreshold, "REVIEWCORE_LONG_PRESS_THRESHOLD_MS")
	overrideFloat(&cfg.FlingDistancePX, "REVIEWCORE_FLING_DISTANCE_PX")
	overrideFloat(&cfg.FlingVelocityPXPerSec, "REVIEWCORE_FLING_VELOCITY_PX_S")
	overrideFloat(&cfg.BaseIntervalMillis, "REVIEWCORE_BASE_INTERVAL_MS")
	overrideFloat(&cfg.MinIntervalMillis, "REVIEWCORE_MIN_INTERVAL_MS")
	overrideDuration(&cfg.BatchInterval, "REVIEWCORE_BATCH_INTERVAL_MS")
	overrideInt(&cfg.BatchSizeThreshold, "REVIEWCORE_BATCH_SIZE_THRESHOLD")
	overrideDuration(&cfg.AutoSaveInterval, "REVIEWCORE_AUTO_SAVE_INTERVAL_MS")
	overrideDuration(&cfg.PeriodicReviewCheckInterval, "REVIEWCORE_PERIODIC_REVIEW_CHECK_MS")
	overrideDuration(&cfg.BackgroundReturnCheckInterval, "REVIEWCORE_BACKGROUND_RETURN_CHECK_MS")
	if dir := os.Getenv("REVIEWCORE_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}
	return cfg
}

func overrideInt(dst *int, envVar string) {
	if s := os.Getenv(envVar); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			*dst = v
		}
	}
}

func overrideFloat(dst *float64, envVar string) {
	if s := os.Getenv(envVar); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*dst = v
		}
	}
}

func overrideDuration(dst *time.Duration, envVar string) {
	if s := os.Getenv(envVar); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			*dst = time.Duration(v) * time.Millisecond
		}
	}
}
