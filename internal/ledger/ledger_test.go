package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(filepath.Join(t.TempDir(), "sent_log.csv"))
	l.now = func() time.Time { return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC) }
	return l
}

func TestSentSetMissingFile(t *testing.T) {
	l := newTestLedger(t)
	assert.Empty(t, l.SentSet())
}

func TestAppendCreatesHeaderOnce(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Append("919876543210", domain.StatusSent, ""))
	require.NoError(t, l.Append("919812345678", domain.StatusFailed, "media_send_failed"))

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,phone,status,note", lines[0])
	assert.Equal(t, "2026-08-29T10:30:00,919876543210,sent,", lines[1])
	assert.Equal(t, "2026-08-29T10:30:00,919812345678,failed,media_send_failed", lines[2])
}

func TestAppendPreservesPriorRecords(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Append("911111111111", domain.StatusSent, ""))

	before, err := os.ReadFile(l.path)
	require.NoError(t, err)

	require.NoError(t, l.Append("912222222222", domain.StatusSent, ""))

	after, err := os.ReadFile(l.path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)),
		"prior records must remain unmodified at the start of the file")
}

func TestAppendSanitizesNote(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Append("911111111111", domain.StatusFailed, "text_send_error: a, b,\nc"))

	data, err := os.ReadFile(l.path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-08-29T10:30:00,911111111111,failed,text_send_error: a; b; c", lines[1])
}

func TestSentSetReplaysOnlySent(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Append("911111111111", domain.StatusSent, ""))
	require.NoError(t, l.Append("912222222222", domain.StatusFailed, "composer timeout"))
	require.NoError(t, l.Append("913333333333", domain.StatusSent, ""))

	sent := l.SentSet()
	assert.True(t, sent["911111111111"])
	assert.True(t, sent["913333333333"])
	assert.False(t, sent["912222222222"])
}

func TestSentSetToleratesLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sent_log.csv")
	require.NoError(t, os.WriteFile(path, []byte("garbage line\n,,,\n2025-01-01T00:00:00,914444444444,sent,\nhalf,row\n"), 0o644))

	l := New(path)
	sent := l.SentSet()
	assert.True(t, sent["914444444444"])
	assert.Len(t, sent, 1)
}
