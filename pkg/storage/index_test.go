package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prasanthmj/inboxtriage/pkg/triage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndexStats(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	escalated := outcome("2", triage.ActionEscalated)
	escalated.Escalation = true
	escalated.Category = triage.CategoryLegal

	require.NoError(t, idx.Record(ctx, "run-a", []triage.RunOutcome{
		outcome("1", triage.ActionSpam),
		escalated,
	}))
	require.NoError(t, idx.Record(ctx, "run-b", []triage.RunOutcome{
		outcome("3", triage.ActionCategorized),
	}))

	old := outcome("0", triage.ActionSpam)
	old.Timestamp = day.AddDate(0, -1, 0)
	require.NoError(t, idx.Record(ctx, "run-old", []triage.RunOutcome{old}))

	stats, err := idx.Stats(ctx, day.Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Runs)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Escalations)
	assert.Equal(t, map[string]int{"spam": 1, "escalated": 1, "categorized": 1}, stats.ByAction)
	assert.Equal(t, map[string]int{"general": 2, "legal": 1}, stats.ByCategory)
}

func TestIndexRecordEmpty(t *testing.T) {
	idx := openTestIndex(t)
	require.NoError(t, idx.Record(context.Background(), "run", nil))

	stats, err := idx.Stats(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Empty(t, stats.ByAction)
}

func TestIndexReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	idx, err := OpenIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Record(context.Background(), "run", []triage.RunOutcome{outcome("1", triage.ActionSpam)}))
	require.NoError(t, idx.Close())

	idx, err = OpenIndex(path)
	require.NoError(t, err)
	defer idx.Close()

	stats, err := idx.Stats(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}
