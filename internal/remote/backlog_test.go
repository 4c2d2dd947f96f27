package remote

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdig1/vache-taureau/internal/database"
	"github.com/zdig1/vache-taureau/internal/score"
	"github.com/zdig1/vache-taureau/internal/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeStore is an in-memory remote with revision checking.
type fakeStore struct {
	doc       Document
	rev       int
	fetchErr  error
	putErr    error
	conflicts int // number of Puts to reject with ErrConflict before accepting
	fetches   int
	puts      int
}

func (f *fakeStore) Fetch(ctx context.Context) (Document, error) {
	f.fetches++
	if f.fetchErr != nil {
		return Document{}, f.fetchErr
	}
	doc := f.doc
	doc.Scores = append([]score.Record(nil), f.doc.Scores...)
	doc.Rev = strconv.Itoa(f.rev)
	return doc, nil
}

func (f *fakeStore) Put(ctx context.Context, doc Document) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		f.rev++ // another writer bumped the revision
		return ErrConflict
	}
	if doc.Rev != strconv.Itoa(f.rev) {
		return ErrConflict
	}
	f.doc = doc
	f.rev++
	return nil
}

func rec(roundID string, attempts int, ts int64) score.Record {
	return score.Record{
		RoundID:    roundID,
		Level:      4,
		Attempts:   attempts,
		Elapsed:    "45s",
		DateLabel:  "01/06/2025",
		Timestamp:  ts,
		PlayerID:   "player_1",
		PlayerName: "SuperAce123",
	}
}

func TestBacklogEnqueueBounded(t *testing.T) {
	ctx := context.Background()
	b := NewBacklog(newTestDB(t), nil, store.NewMemory(), 3)

	base := time.Now().UnixMilli()
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Enqueue(ctx, rec("r"+strconv.Itoa(i), 5, base+int64(i)*60_000)))
	}

	pending, err := b.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3, "oldest entries dropped beyond the cap")
	assert.Equal(t, "r2", pending[0].RoundID)
	assert.Equal(t, "r4", pending[2].RoundID)
}

func TestBacklogFlushDisabled(t *testing.T) {
	ctx := context.Background()
	b := NewBacklog(newTestDB(t), nil, store.NewMemory(), 10)
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, time.Now().UnixMilli())))

	synced, err := b.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, synced)

	n, err := b.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "records wait in the queue while sync is disabled")
}

func TestBacklogFlushHappyPath(t *testing.T) {
	ctx := context.Background()
	f := &fakeStore{}
	settings := store.NewMemory()
	b := NewBacklog(newTestDB(t), f, settings, 10)

	base := time.Now().UnixMilli()
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, base)))
	require.NoError(t, b.Enqueue(ctx, rec("r2", 7, base+60_000)))

	synced, err := b.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Len(t, f.doc.Scores, 2)
	assert.Equal(t, 2, f.doc.TotalGames)

	n, err := b.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "acked records removed from the queue")
	assert.NotZero(t, b.LastSync(ctx))
}

func TestBacklogFlushSkipsRemoteDuplicates(t *testing.T) {
	ctx := context.Background()
	base := time.Now().UnixMilli()
	f := &fakeStore{doc: Document{Scores: []score.Record{rec("r1", 5, base)}, TotalGames: 1}, rev: 1}
	b := NewBacklog(newTestDB(t), f, store.NewMemory(), 10)

	// r1 already remote by roundId; r3 matches r1's player/level/attempts
	// minutes later so it is a genuine new record.
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, base)))
	require.NoError(t, b.Enqueue(ctx, rec("r3", 5, base+120_000)))

	synced, err := b.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Len(t, f.doc.Scores, 2)
	assert.Equal(t, 2, f.doc.TotalGames)
}

func TestBacklogFlushHeuristicDuplicate(t *testing.T) {
	ctx := context.Background()
	base := time.Now().UnixMilli()
	remoteRec := rec("", 5, base) // legacy record without roundId
	f := &fakeStore{doc: Document{Scores: []score.Record{remoteRec}}, rev: 1}
	b := NewBacklog(newTestDB(t), f, store.NewMemory(), 10)

	// Same player/level/attempts within 10s of the legacy record.
	require.NoError(t, b.Enqueue(ctx, rec("r9", 5, base+3000)))

	synced, err := b.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced, "duplicate counts as acked")
	assert.Len(t, f.doc.Scores, 1, "nothing appended for the duplicate")

	n, err := b.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBacklogFlushConflictRetry(t *testing.T) {
	ctx := context.Background()
	f := &fakeStore{conflicts: 2}
	b := NewBacklog(newTestDB(t), f, store.NewMemory(), 10)
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, time.Now().UnixMilli())))

	synced, err := b.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	assert.Equal(t, 3, f.fetches, "re-fetch per conflict")
}

func TestBacklogFlushConflictExhausted(t *testing.T) {
	ctx := context.Background()
	f := &fakeStore{conflicts: 99}
	b := NewBacklog(newTestDB(t), f, store.NewMemory(), 10)
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, time.Now().UnixMilli())))

	_, err := b.Flush(ctx)
	assert.ErrorIs(t, err, ErrConflict)

	n, err2 := b.PendingCount(ctx)
	require.NoError(t, err2)
	assert.Equal(t, 1, n, "records stay queued after bounded retries")
}

func TestBacklogFlushFetchFailureLeavesQueue(t *testing.T) {
	ctx := context.Background()
	f := &fakeStore{fetchErr: errors.New("network down")}
	b := NewBacklog(newTestDB(t), f, store.NewMemory(), 10)
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, time.Now().UnixMilli())))

	_, err := b.Flush(ctx)
	assert.Error(t, err)

	n, err := b.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWorkerTriggerFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeStore{}
	b := NewBacklog(newTestDB(t), f, store.NewMemory(), 10)
	require.NoError(t, b.Enqueue(ctx, rec("r1", 5, time.Now().UnixMilli())))

	w := NewWorker(b, time.Hour) // interval far away; trigger drives the flush
	done := make(chan struct{})
	go func() { w.Run(ctx); close(done) }()

	w.Trigger()
	require.Eventually(t, func() bool {
		n, err := b.PendingCount(context.Background())
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
