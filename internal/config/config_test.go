package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"message_text": "hi {name}"}`))
	require.NoError(t, err)

	assert.Equal(t, "hi {name}", cfg.MessageText)
	assert.Equal(t, "91", cfg.DefaultCountryCode)
	assert.Equal(t, 500, cfg.BatchLimit)
	assert.Equal(t, 8.0, cfg.SleepMinSeconds)
	assert.Equal(t, 16.0, cfg.SleepMaxSeconds)
	assert.Equal(t, 30, cfg.LongPauseEvery)
	assert.Equal(t, []float64{30, 60}, cfg.LongPauseRange)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, "sent_log.csv", cfg.LedgerPath)
	assert.Equal(t, 30*time.Second, cfg.ComposerTimeout())
	assert.Equal(t, 60*time.Second, cfg.MediaTimeout())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"message_text": "hello",
		"media_path": "offer.jpg",
		"default_country_code": "1",
		"batch_limit": 50,
		"sleep_min_seconds": 2,
		"sleep_max_seconds": 4,
		"long_pause_every": 10,
		"long_pause_range_seconds": [5, 9],
		"dry_run": true,
		"max_attempts_per_minute": 6
	}`))
	require.NoError(t, err)

	assert.Equal(t, "offer.jpg", cfg.MediaPath)
	assert.Equal(t, "1", cfg.DefaultCountryCode)
	assert.Equal(t, 50, cfg.BatchLimit)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, []float64{5, 9}, cfg.LongPauseRange)
	assert.Equal(t, 6, cfg.MaxAttemptsPerMinute)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, `{"mesage_text": "typo"}`))
	require.Error(t, err)
}

func TestLoadInvalidSleepRange(t *testing.T) {
	_, err := Load(writeConfig(t, `{"sleep_min_seconds": 10, "sleep_max_seconds": 5}`))
	require.Error(t, err)
}

func TestLoadInvalidLongPauseRange(t *testing.T) {
	_, err := Load(writeConfig(t, `{"long_pause_range_seconds": [30]}`))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{"long_pause_range_seconds": [60, 30]}`))
	require.Error(t, err)
}

func TestLoadInvalidCron(t *testing.T) {
	_, err := Load(writeConfig(t, `{"start_cron": "not a cron"}`))
	require.Error(t, err)
}

func TestNextStart(t *testing.T) {
	from := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	next, err := NextStart("0 12 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), next)
}
