package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// Config is the per-run configuration. All fields have defaults; the JSON
// file only needs the keys it wants to override. Unknown keys are rejected
// so typos fail loudly instead of silently falling back to a default.
type Config struct {
	MessageText        string    `json:"message_text"`
	MediaPath          string    `json:"media_path"`
	DefaultCountryCode string    `json:"default_country_code"`
	BatchLimit         int       `json:"batch_limit"`
	SleepMinSeconds    float64   `json:"sleep_min_seconds"`
	SleepMaxSeconds    float64   `json:"sleep_max_seconds"`
	LongPauseEvery     int       `json:"long_pause_every"`
	LongPauseRange     []float64 `json:"long_pause_range_seconds"`
	DryRun             bool      `json:"dry_run"`

	LedgerPath           string `json:"ledger_path"`
	HistoryDBPath        string `json:"history_db_path"`
	StatusAddr           string `json:"status_addr"`
	StartCron            string `json:"start_cron"`
	MaxAttemptsPerMinute int    `json:"max_attempts_per_minute"`

	DriverURL              string `json:"driver_url"`
	ComposerTimeoutSeconds int    `json:"composer_timeout_seconds"`
	MediaTimeoutSeconds    int    `json:"media_timeout_seconds"`
}

func Defaults() Config {
	return Config{
		DefaultCountryCode:     "91",
		BatchLimit:             500,
		SleepMinSeconds:        8,
		SleepMaxSeconds:        16,
		LongPauseEvery:         30,
		LongPauseRange:         []float64{30, 60},
		LedgerPath:             "sent_log.csv",
		DriverURL:              "http://127.0.0.1:9515",
		ComposerTimeoutSeconds: 30,
		MediaTimeoutSeconds:    60,
	}
}

// Load reads and validates the JSON config file. A missing file is a fatal
// configuration error; the caller is expected to abort before any sending.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Defaults()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if v := os.Getenv("WASENDER_DRIVER_URL"); v != "" {
		cfg.DriverURL = v
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BatchLimit <= 0 {
		return fmt.Errorf("batch_limit must be > 0")
	}
	if c.SleepMinSeconds < 0 || c.SleepMaxSeconds < c.SleepMinSeconds {
		return fmt.Errorf("sleep range [%v,%v] invalid", c.SleepMinSeconds, c.SleepMaxSeconds)
	}
	if len(c.LongPauseRange) != 2 {
		return fmt.Errorf("long_pause_range_seconds must have exactly 2 elements")
	}
	if c.LongPauseRange[0] < 0 || c.LongPauseRange[1] < c.LongPauseRange[0] {
		return fmt.Errorf("long_pause_range_seconds [%v,%v] invalid", c.LongPauseRange[0], c.LongPauseRange[1])
	}
	if c.MaxAttemptsPerMinute < 0 {
		return fmt.Errorf("max_attempts_per_minute must be >= 0")
	}
	if c.StartCron != "" {
		if err := ValidateCron(c.StartCron); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) ComposerTimeout() time.Duration {
	return time.Duration(c.ComposerTimeoutSeconds) * time.Second
}

func (c Config) MediaTimeout() time.Duration {
	return time.Duration(c.MediaTimeoutSeconds) * time.Second
}

// ValidateCron validates a standard 5-field cron expression.
func ValidateCron(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("start_cron: invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// NextStart calculates the next firing of a cron expression after from.
func NextStart(expr string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
