package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
)

const dryRunSampleSize = 10

// DryRunReport is what a run would do, without any UI interaction or
// ledger writes.
type DryRunReport struct {
	WouldProcess int
	Sample       []domain.Contact
}

// DryRun reports how many contacts a run would process, capped at the batch
// limit, and previews the first few.
func DryRun(contacts []domain.Contact, batchLimit int, log zerolog.Logger) DryRunReport {
	n := len(contacts)
	if n > batchLimit {
		n = batchLimit
	}
	sample := contacts
	if len(sample) > dryRunSampleSize {
		sample = sample[:dryRunSampleSize]
	}
	log.Info().Int("contacts", len(contacts)).Int("would_process", n).Msg("dry run, nothing will be sent")
	for _, c := range sample {
		log.Info().Str("phone", c.Phone).Str("name", c.Name).Msg("dry run preview")
	}
	return DryRunReport{WouldProcess: n, Sample: sample}
}
