// Package dispatch runs the send loop over the deduplicated contact list:
// it filters against the ledger, paces attempts with jittered sleeps and
// periodic long pauses, trips a circuit breaker on consecutive failures,
// and records every outcome.
package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
	"github.com/ponram06/WhatsappBulksender/internal/protocol"
)

const defaultFailureTrip = 5

// Sender is the per-contact send protocol.
type Sender interface {
	SendText(ctx context.Context, phone, message string) protocol.Result
	SendMedia(ctx context.Context, phone, message, mediaPath string) protocol.Result
}

// Ledger is the durable attempt log used for idempotent resumption.
type Ledger interface {
	SentSet() map[string]bool
	Append(phone string, status domain.AttemptStatus, note string) error
}

// Recorder receives run history events. It is optional; failures here never
// affect the run itself.
type Recorder interface {
	StartRun(ctx context.Context, runID string, total int, startedAt time.Time) error
	RecordAttempt(ctx context.Context, runID, phone string, status domain.AttemptStatus, note string, at time.Time) error
	FinishRun(ctx context.Context, summary domain.RunSummary) error
}

type Options struct {
	MessageText string
	MediaPath   string // empty means text-only mode

	BatchLimit     int
	SleepMin       float64 // seconds
	SleepMax       float64
	LongPauseEvery int
	LongPauseMin   float64
	LongPauseMax   float64

	// FailureTrip is the consecutive-failure threshold that halts the run.
	// Zero means the default of 5.
	FailureTrip int

	// Limiter is an optional global attempts-per-minute cap layered on top
	// of the jittered sleeps.
	Limiter *rate.Limiter

	Logger zerolog.Logger

	// Sleep and Rand are swappable for tests. Rand returns a uniform value
	// in [0,1).
	Sleep func(time.Duration)
	Rand  func() float64
	Now   func() time.Time
}

// Snapshot is a point-in-time view of the current run, served by the status
// API.
type Snapshot struct {
	RunID               string            `json:"run_id"`
	Running             bool              `json:"running"`
	Total               int               `json:"total"`
	Sent                int               `json:"sent"`
	Failed              int               `json:"failed"`
	Skipped             int               `json:"skipped"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	StopReason          domain.StopReason `json:"stop_reason,omitempty"`
	StartedAt           time.Time         `json:"started_at"`
}

type Dispatcher struct {
	opts     Options
	sender   Sender
	ledger   Ledger
	recorder Recorder

	mu   sync.Mutex
	snap Snapshot
}

func New(sender Sender, ledger Ledger, recorder Recorder, opts Options) *Dispatcher {
	if opts.FailureTrip <= 0 {
		opts.FailureTrip = defaultFailureTrip
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Rand == nil {
		opts.Rand = defaultRand
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{opts: opts, sender: sender, ledger: ledger, recorder: recorder}
}

// Run processes the contact list sequentially, one contact in flight at a
// time. It returns when the list is exhausted, the batch limit is reached,
// or the circuit breaker trips; per-contact failures never abort the run.
func (d *Dispatcher) Run(ctx context.Context, contacts []domain.Contact) domain.RunSummary {
	runID := "run_" + uuid.NewString()
	startedAt := d.opts.Now()
	sentSet := d.ledger.SentSet()

	var sent, failed, skipped, consecutive int
	d.setSnapshot(Snapshot{RunID: runID, Running: true, Total: len(contacts), StartedAt: startedAt})

	if d.recorder != nil {
		if err := d.recorder.StartRun(ctx, runID, len(contacts), startedAt); err != nil {
			d.opts.Logger.Warn().Err(err).Msg("history: start run")
		}
	}

	reason := domain.StopCompleted
	for i, c := range contacts {
		if sentSet[c.Phone] {
			skipped++
			d.updateCounts(sent, failed, skipped, consecutive)
			continue
		}

		message := Personalize(d.opts.MessageText, c.Name)
		if d.opts.Limiter != nil {
			_ = d.opts.Limiter.Wait(ctx)
		}

		res := d.attempt(ctx, c.Phone, message)
		at := d.opts.Now()
		status := domain.StatusSent
		if res.OK {
			sent++
			consecutive = 0
			ev := d.opts.Logger.Info().Int("sent", sent).Str("phone", c.Phone)
			if res.Warning != "" {
				ev = ev.Str("warning", res.Warning)
			}
			ev.Msg("sent")
		} else {
			status = domain.StatusFailed
			failed++
			consecutive++
			d.opts.Logger.Warn().Str("phone", c.Phone).Str("reason", res.Note).Msg("send failed")
		}
		if err := d.ledger.Append(c.Phone, status, res.Note); err != nil {
			d.opts.Logger.Error().Err(err).Str("phone", c.Phone).Msg("ledger append")
		}
		if d.recorder != nil {
			if err := d.recorder.RecordAttempt(ctx, runID, c.Phone, status, res.Note, at); err != nil {
				d.opts.Logger.Warn().Err(err).Msg("history: record attempt")
			}
		}
		d.updateCounts(sent, failed, skipped, consecutive)

		if sent >= d.opts.BatchLimit {
			reason = domain.StopBatchLimit
			d.opts.Logger.Info().Int("batch_limit", d.opts.BatchLimit).Msg("batch limit reached, stopping")
			break
		}
		if consecutive >= d.opts.FailureTrip {
			reason = domain.StopCircuitBreaker
			d.opts.Logger.Error().Int("consecutive_failures", consecutive).
				Msg("too many consecutive failures, stopping to avoid account risk")
			break
		}
		if i == len(contacts)-1 {
			break
		}

		// Jittered pacing before the next contact.
		d.opts.Sleep(d.uniform(d.opts.SleepMin, d.opts.SleepMax))
		if res.OK && sent > 0 && sent%maxInt(1, d.opts.LongPauseEvery) == 0 {
			extra := d.uniform(d.opts.LongPauseMin, d.opts.LongPauseMax)
			d.opts.Logger.Info().Dur("pause", extra).Msg("taking a longer break")
			d.opts.Sleep(extra)
		}
	}

	summary := domain.RunSummary{
		ID:         runID,
		StartedAt:  startedAt,
		FinishedAt: d.opts.Now(),
		Total:      len(contacts),
		Sent:       sent,
		Failed:     failed,
		Skipped:    skipped,
		StopReason: reason,
	}
	if d.recorder != nil {
		if err := d.recorder.FinishRun(ctx, summary); err != nil {
			d.opts.Logger.Warn().Err(err).Msg("history: finish run")
		}
	}
	d.finishSnapshot(reason)
	return summary
}

// attempt invokes the protocol variant selected by the media path. A panic
// inside a send attempt is recorded as a failed attempt rather than
// terminating the batch.
func (d *Dispatcher) attempt(ctx context.Context, phone, message string) (res protocol.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = protocol.Result{Note: fmt.Sprintf("exception: %v", r)}
		}
	}()
	if d.opts.MediaPath != "" {
		return d.sender.SendMedia(ctx, phone, message, d.opts.MediaPath)
	}
	return d.sender.SendText(ctx, phone, message)
}

// Personalize substitutes the {name} placeholder, falling back to a generic
// greeting when the contact has no name.
func Personalize(template, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "there"
	}
	return strings.ReplaceAll(template, "{name}", name)
}

func (d *Dispatcher) uniform(minSec, maxSec float64) time.Duration {
	sec := minSec + d.opts.Rand()*(maxSec-minSec)
	return time.Duration(sec * float64(time.Second))
}

func (d *Dispatcher) setSnapshot(s Snapshot) {
	d.mu.Lock()
	d.snap = s
	d.mu.Unlock()
}

func (d *Dispatcher) updateCounts(sent, failed, skipped, consecutive int) {
	d.mu.Lock()
	d.snap.Sent = sent
	d.snap.Failed = failed
	d.snap.Skipped = skipped
	d.snap.ConsecutiveFailures = consecutive
	d.mu.Unlock()
}

func (d *Dispatcher) finishSnapshot(reason domain.StopReason) {
	d.mu.Lock()
	d.snap.Running = false
	d.snap.StopReason = reason
	d.mu.Unlock()
}

// Snapshot returns a copy of the current run state.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap
}

func defaultRand() float64 { return rand.Float64() }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
