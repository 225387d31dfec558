package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ponram06/WhatsappBulksender/internal/domain"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?cache=shared&mode=rwc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)
	require.NoError(t, EnsureSchema(db))
	return NewStore(db)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.StartRun(ctx, "run_abc", 10, started))
	require.NoError(t, s.RecordAttempt(ctx, "run_abc", "911111111111", domain.StatusSent, "", started.Add(time.Second)))
	require.NoError(t, s.RecordAttempt(ctx, "run_abc", "912222222222", domain.StatusFailed, "media_send_failed", started.Add(2*time.Second)))
	require.NoError(t, s.FinishRun(ctx, domain.RunSummary{
		ID:         "run_abc",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Total:      10,
		Sent:       1,
		Failed:     1,
		Skipped:    8,
		StopReason: domain.StopCompleted,
	}))

	runs, err := s.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run_abc", runs[0].ID)
	assert.Equal(t, 1, runs[0].Sent)
	assert.Equal(t, 8, runs[0].Skipped)
	assert.Equal(t, domain.StopCompleted, runs[0].StopReason)

	attempts, err := s.RecentAttempts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	// Most recent first.
	assert.Equal(t, "912222222222", attempts[0].Phone)
	assert.Equal(t, domain.StatusFailed, attempts[0].Status)
	assert.Equal(t, "media_send_failed", attempts[0].Note)
	assert.Equal(t, "911111111111", attempts[1].Phone)
}

func TestRecentAttemptsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.StartRun(ctx, "run_x", 3, time.Now()))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordAttempt(ctx, "run_x", "9111111111"+string(rune('0'+i)), domain.StatusSent, "", time.Now()))
	}

	attempts, err := s.RecentAttempts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestListRunsEmpty(t *testing.T) {
	s := newTestStore(t)
	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
