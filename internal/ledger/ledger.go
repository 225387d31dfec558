// Package ledger persists send attempts to an append-only CSV file.
//
// The ledger is the durable state that makes runs resumable: replaying it
// yields the set of phones already marked sent. A "sent" row means the
// submission action completed without a detected UI error; it is not a
// delivery receipt.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
)

const header = "timestamp,phone,status,note"

const timeLayout = "2006-01-02T15:04:05"

type Ledger struct {
	path string
	now  func() time.Time
}

func New(path string) *Ledger {
	return &Ledger{path: path, now: time.Now}
}

// SentSet replays the ledger and returns the phones already marked sent.
// A missing file means no prior history. An unreadable or malformed file
// degrades to an empty set instead of failing the run.
func (l *Ledger) SentSet() map[string]bool {
	sent := make(map[string]bool)
	f, err := os.Open(l.path)
	if err != nil {
		return sent
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			if line == header {
				continue
			}
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}
		if fields[2] == string(domain.StatusSent) {
			sent[fields[1]] = true
		}
	}
	if sc.Err() != nil {
		return make(map[string]bool)
	}
	return sent
}

// Append writes one attempt record, creating the file with a header line if
// it did not already exist. Writes are strictly append-only: prior records
// are never read back, reordered, or rewritten. Embedded separators in the
// note are replaced so the one-record-per-line invariant holds.
func (l *Ledger) Append(phone string, status domain.AttemptStatus, note string) error {
	_, statErr := os.Stat(l.path)
	existed := statErr == nil

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if !existed {
		if _, err := fmt.Fprintln(f, header); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}
	_, err = fmt.Fprintf(f, "%s,%s,%s,%s\n", l.now().Format(timeLayout), phone, status, sanitizeNote(note))
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

func sanitizeNote(note string) string {
	note = strings.ReplaceAll(note, ",", ";")
	note = strings.ReplaceAll(note, "\r", " ")
	note = strings.ReplaceAll(note, "\n", " ")
	return note
}
