// internal/remote/backlog.go
//
// Sync Backlog: a durable queue of score records awaiting remote
// acknowledgement.
// Responsibilities:
//   - Enqueue committed records, bounded at a cap (oldest dropped beyond
//     it so prolonged disconnection cannot grow the queue unbounded).
//   - Flush: fetch the remote document, merge non-duplicate pending
//     records, Put with the fetched revision; on a stale-revision
//     conflict re-fetch and re-apply a bounded number of times, else
//     leave the records queued for the next pass.
//   - Acknowledged records are removed by roundId.
//
// Forwarding is fire-and-forget from the game's perspective: a failed
// flush never blocks gameplay.

package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zdig1/vache-taureau/internal/score"
	"github.com/zdig1/vache-taureau/internal/store"
)

// conflictRetries bounds re-fetch/re-apply rounds on stale revisions.
const conflictRetries = 3

// remoteDedupWindowMs matches the wider tolerance the remote document
// historically used for double-submits predating roundId tracking.
const remoteDedupWindowMs = 10000

// Backlog is the durable pending-scores queue.
type Backlog struct {
	db       *sql.DB
	remote   Store          // nil when sync is disabled
	settings store.Settings // records lastSyncTimestamp
	cap      int
}

// NewBacklog wraps an opened, migrated database handle. remote may be
// nil, in which case Flush is a no-op and records simply wait in the
// (bounded) queue.
func NewBacklog(db *sql.DB, remote Store, settings store.Settings, cap int) *Backlog {
	if cap <= 0 {
		cap = 50
	}
	return &Backlog{db: db, remote: remote, settings: settings, cap: cap}
}

// Enqueue adds a record to the pending queue, keyed by roundId, then
// trims the queue to the cap by dropping the oldest entries.
func (b *Backlog) Enqueue(ctx context.Context, r score.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx, `
        INSERT INTO pending_scores (round_id, payload, queued_at) VALUES (?, ?, ?)
        ON CONFLICT(round_id) DO UPDATE SET payload=excluded.payload`,
		r.RoundID, string(payload), time.Now().UnixMilli()); err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx, `
        DELETE FROM pending_scores WHERE round_id NOT IN (
            SELECT round_id FROM pending_scores ORDER BY queued_at DESC, rowid DESC LIMIT ?
        )`, b.cap)
	return err
}

// Pending returns queued records, oldest first. Rows that no longer
// parse are dropped rather than wedging the queue.
func (b *Backlog) Pending(ctx context.Context) ([]score.Record, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT round_id, payload FROM pending_scores ORDER BY queued_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []score.Record
	var bad []string
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var r score.Record
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			log.Warn().Err(err).Str("roundId", id).Msg("dropping malformed pending score")
			bad = append(bad, id)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range bad {
		b.remove(ctx, id)
	}
	return out, nil
}

// PendingCount returns the queue length.
func (b *Backlog) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM pending_scores`).Scan(&n)
	return n, err
}

// LastSync returns the epoch-ms of the last successful flush, 0 when
// never synced.
func (b *Backlog) LastSync(ctx context.Context) int64 {
	v, err := b.settings.Get(ctx, store.KeyLastSync)
	if err != nil || v == "" {
		return 0
	}
	ms, _ := strconv.ParseInt(v, 10, 64)
	return ms
}

// Flush pushes all pending records to the remote store. Returns the
// number of records acknowledged (present remotely afterwards, whether
// we wrote them or a duplicate was already there).
func (b *Backlog) Flush(ctx context.Context) (int, error) {
	if b.remote == nil {
		return 0, nil
	}
	pending, err := b.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		b.markSynced(ctx)
		return 0, nil
	}

	for attempt := 0; attempt < conflictRetries; attempt++ {
		doc, err := b.remote.Fetch(ctx)
		if err != nil {
			return 0, err
		}

		added := 0
		for _, r := range pending {
			if !documentHas(doc, r) {
				doc.Scores = append(doc.Scores, r)
				added++
			}
		}
		doc.TotalGames += added
		doc.LastUpdate = time.Now().UTC().Format(time.RFC3339)

		if added > 0 || doc.Rev == "" {
			if err := b.remote.Put(ctx, doc); err != nil {
				if err == ErrConflict {
					log.Info().Int("attempt", attempt+1).Msg("remote revision conflict, refetching")
					continue
				}
				return 0, err
			}
		}

		for _, r := range pending {
			b.remove(ctx, r.RoundID)
		}
		b.markSynced(ctx)
		return len(pending), nil
	}

	// Revisions kept going stale; records stay queued for the next pass.
	return 0, ErrConflict
}

// documentHas reports whether the document already carries the record:
// same roundId, or the same player/level/attempts within the historical
// tolerance window.
func documentHas(doc Document, r score.Record) bool {
	for _, s := range doc.Scores {
		if s.RoundID != "" && s.RoundID == r.RoundID {
			return true
		}
		if s.PlayerID == r.PlayerID && s.Level == r.Level && s.Attempts == r.Attempts &&
			abs64(s.Timestamp-r.Timestamp) < remoteDedupWindowMs {
			return true
		}
	}
	return false
}

func (b *Backlog) remove(ctx context.Context, roundID string) {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM pending_scores WHERE round_id=?`, roundID); err != nil {
		log.Warn().Err(err).Str("roundId", roundID).Msg("remove pending score")
	}
}

func (b *Backlog) markSynced(ctx context.Context) {
	if b.settings == nil {
		return
	}
	ms := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := b.settings.Set(ctx, store.KeyLastSync, ms); err != nil {
		log.Warn().Err(err).Msg("record last sync time")
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
