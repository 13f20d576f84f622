// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tracker

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

func openTest(t *testing.T, now time.Time) *Tracker {
	t.Helper()
	tr, err := Open(filepath.Join(t.TempDir(), "db", "database.sqlite"))
	require.NoError(t, err)
	tr.now = func() time.Time { return now }
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestIsDone_Window(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := openTest(t, now)
	ctx := context.Background()

	require.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{
		Site: "arxiv", Keyword: "tau protein", Directory: "/tmp/a", CompletedAt: now.Add(-3 * time.Hour),
	}))

	done, err := tr.IsDone(ctx, "arxiv", "tau protein", 12*time.Hour)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = tr.IsDone(ctx, "arxiv", "tau protein", 2*time.Hour)
	require.NoError(t, err)
	assert.False(t, done, "record is older than the window")

	done, err = tr.IsDone(ctx, "arxiv", "amyloid", 12*time.Hour)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = tr.IsDone(ctx, "pubmed", "tau protein", 12*time.Hour)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestMarkDone_ZeroTimeUsesNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := openTest(t, now)
	ctx := context.Background()

	require.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{Site: "s", Keyword: "k", Directory: "d"}))
	recs, err := tr.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].CompletedAt.Equal(now))
	assert.Equal(t, "d", recs[0].Directory)
}

func TestPrune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := openTest(t, now)
	ctx := context.Background()

	for i, age := range []time.Duration{time.Hour, 59 * 24 * time.Hour, 61 * 24 * time.Hour, 400 * 24 * time.Hour} {
		require.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{
			Site: "s", Keyword: string(rune('a' + i)), Directory: "d", CompletedAt: now.Add(-age),
		}))
	}

	n, err := tr.Prune(ctx, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recs, err := tr.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Keyword, "newest first")
	assert.Equal(t, "b", recs[1].Keyword)

	n, err = tr.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.sqlite")
	ctx := context.Background()

	tr, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{Site: "s", Keyword: "k", Directory: "d"}))
	require.NoError(t, tr.Close())

	tr, err = Open(path)
	require.NoError(t, err)
	defer tr.Close()
	done, err := tr.IsDone(ctx, "s", "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestClosed(t *testing.T) {
	tr := openTest(t, time.Now())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err := tr.IsDone(context.Background(), "s", "k", time.Hour)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, tr.MarkDone(context.Background(), types.CompletionRecord{Site: "s"}), ErrClosed)
	_, err = tr.List(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentMarkDone(t *testing.T) {
	tr := openTest(t, time.Now())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{
				Site: "s", Keyword: string(rune('a' + i)), Directory: "d",
			}))
		}(i)
	}
	wg.Wait()

	recs, err := tr.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 8)
}

func TestMarkDone_AfterWindowAddsRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := openTest(t, now)
	ctx := context.Background()
	window := 12 * time.Hour

	require.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{
		Site: "arxiv", Keyword: "tau", Directory: "/runs/old", CompletedAt: now.Add(-20 * time.Hour),
	}))
	done, err := tr.IsDone(ctx, "arxiv", "tau", window)
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, tr.MarkDone(ctx, types.CompletionRecord{
		Site: "arxiv", Keyword: "tau", Directory: "/runs/new", CompletedAt: now,
	}))
	done, err = tr.IsDone(ctx, "arxiv", "tau", window)
	require.NoError(t, err)
	assert.True(t, done)

	recs, err := tr.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "/runs/new", recs[0].Directory)
	assert.Equal(t, "/runs/old", recs[1].Directory)
}
