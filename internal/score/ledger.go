// internal/score/ledger.go
//
// Score Ledger: a bounded, deduplicated, ranked score table partitioned
// by difficulty level.
// Responsibilities:
//   - Commit a completed round's record (identity required, dedup by
//     roundId with a double-submit heuristic fallback, per-level
//     truncation to the best N).
//   - Query ranked records, optionally filtered by level.
//   - Aggregate per-player statistics.
//
// Ordering is attempts ascending with ties broken by most recent
// timestamp, applied identically at commit (truncation) and query time.

package score

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zdig1/vache-taureau/internal/game"
)

// Ledger stores score records in the scores table.
type Ledger struct {
	db       *sql.DB
	perLevel int // max records retained per level
}

// NewLedger wraps an opened, migrated database handle. perLevel bounds
// the table at perLevel × len(game.Levels) total records.
func NewLedger(db *sql.DB, perLevel int) *Ledger {
	if perLevel <= 0 {
		perLevel = 10
	}
	return &Ledger{db: db, perLevel: perLevel}
}

// Commit inserts (or idempotently re-saves) one record, then truncates
// the record's level partition to the best N.
//
// Dedup rules, in order:
//   - same roundId → overwrite the existing row, never duplicate
//   - same (playerId, level, attempts) within a small timestamp window
//     → drop the new record silently (retried double-submit)
func (l *Ledger) Commit(ctx context.Context, r Record) error {
	if r.PlayerID == "" || r.PlayerName == "" {
		return ErrNoIdentity
	}
	if r.RoundID == "" {
		return fmt.Errorf("score: record has no roundId")
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Fallback heuristic for records predating roundId tracking: a near-
	// simultaneous identical result from the same player is a retry.
	var dup int
	err = tx.QueryRowContext(ctx, `
        SELECT COUNT(1) FROM scores
        WHERE round_id != ? AND player_id = ? AND level = ? AND attempts = ?
          AND ABS(ts - ?) < ?`,
		r.RoundID, r.PlayerID, r.Level, r.Attempts, r.Timestamp, dedupWindowMs,
	).Scan(&dup)
	if err != nil {
		return err
	}
	if dup == 0 {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO scores (round_id, level, attempts, elapsed, date_label, ts, player_id, player_name)
            VALUES (?,?,?,?,?,?,?,?)
            ON CONFLICT(round_id) DO UPDATE SET
                level=excluded.level, attempts=excluded.attempts,
                elapsed=excluded.elapsed, date_label=excluded.date_label,
                ts=excluded.ts, player_id=excluded.player_id,
                player_name=excluded.player_name`,
			r.RoundID, r.Level, r.Attempts, r.Elapsed, r.DateLabel, r.Timestamp, r.PlayerID, r.PlayerName,
		); err != nil {
			return err
		}
	}

	// Keep only the best N of this level, dedup enforced at write time
	// rather than by periodic sweeps.
	if _, err := tx.ExecContext(ctx, `
        DELETE FROM scores WHERE level = ? AND round_id NOT IN (
            SELECT round_id FROM scores WHERE level = ?
            ORDER BY attempts ASC, ts DESC LIMIT ?
        )`, r.Level, r.Level, l.perLevel); err != nil {
		return err
	}

	return tx.Commit()
}

// Query returns ranked records for one level, or for all levels when
// level is 0 (grouped by level, each partition ranked and truncated).
func (l *Ledger) Query(ctx context.Context, level int) ([]Record, error) {
	if level != 0 && !game.ValidLevel(level) {
		return nil, fmt.Errorf("score: unknown level %d", level)
	}

	levels := game.Levels
	if level != 0 {
		levels = []int{level}
	}

	out := []Record{}
	for _, lv := range levels {
		rows, err := l.db.QueryContext(ctx, `
            SELECT round_id, level, attempts, elapsed, date_label, ts, player_id, player_name
            FROM scores WHERE level = ?
            ORDER BY attempts ASC, ts DESC LIMIT ?`, lv, l.perLevel)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var r Record
			if err := rows.Scan(&r.RoundID, &r.Level, &r.Attempts, &r.Elapsed, &r.DateLabel, &r.Timestamp, &r.PlayerID, &r.PlayerName); err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// LevelStats summarizes one level for a single player.
type LevelStats struct {
	Count int `json:"count"`
	Best  int `json:"best"` // fewest attempts
}

// PlayerStats aggregates a single player's retained results.
type PlayerStats struct {
	TotalGames int                `json:"totalGames"`
	BestScore  int                `json:"bestScore"` // fewest attempts across levels, 0 when no games
	ByLevel    map[int]LevelStats `json:"byLevel"`
}

// StatsFor computes aggregates over the player's retained records.
func (l *Ledger) StatsFor(ctx context.Context, playerID string) (PlayerStats, error) {
	stats := PlayerStats{ByLevel: map[int]LevelStats{}}
	rows, err := l.db.QueryContext(ctx, `
        SELECT level, COUNT(1), MIN(attempts) FROM scores
        WHERE player_id = ? GROUP BY level`, playerID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var lv int
		var ls LevelStats
		if err := rows.Scan(&lv, &ls.Count, &ls.Best); err != nil {
			return stats, err
		}
		stats.ByLevel[lv] = ls
		stats.TotalGames += ls.Count
		if stats.BestScore == 0 || ls.Best < stats.BestScore {
			stats.BestScore = ls.Best
		}
	}
	return stats, rows.Err()
}

// Count returns the total number of retained records.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scores`).Scan(&n)
	return n, err
}
