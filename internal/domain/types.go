package domain

import "time"

// Contact is one normalized recipient. Phone is digits only, country code
// included, and is the dedup/resume key for the whole run.
type Contact struct {
	Name  string
	Phone string
}

// AttemptStatus is the outcome recorded in the send ledger.
type AttemptStatus string

const (
	StatusSent   AttemptStatus = "sent"
	StatusFailed AttemptStatus = "failed"
)

// StopReason says why a run loop ended.
type StopReason string

const (
	StopCompleted      StopReason = "completed"
	StopBatchLimit     StopReason = "batch_limit"
	StopCircuitBreaker StopReason = "circuit_breaker"
)

// RunSummary is the final accounting for one dispatch run.
//
// Sent counts submissions that completed without a detected UI error; it is
// not a delivery confirmation.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Sent       int
	Failed     int
	Skipped    int
	StopReason StopReason
}
