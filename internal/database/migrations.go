// internal/database/migrations.go
//
// Embedded schema migrations, applied in declaration order by Migrate.
// Logical key layout (one table per durable concern):
//   session        — single-slot JSON envelope for the active round
//   settings       — small key/value pairs (level, committedRoundId, lastSyncTs)
//   identity       — single-slot player identity (playerId + display name)
//   scores         — per-level bounded score table, keyed by round_id
//   pending_scores — sync backlog awaiting remote acknowledgement

package database

var migrations = []struct {
	name string
	sql  string
}{
	{"0001_session", `
CREATE TABLE IF NOT EXISTS session (
    slot       INTEGER PRIMARY KEY CHECK (slot = 1),
    payload    TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`},
	{"0002_settings", `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`},
	{"0003_identity", `
CREATE TABLE IF NOT EXISTS identity (
    slot         INTEGER PRIMARY KEY CHECK (slot = 1),
    player_id    TEXT NOT NULL,
    display_name TEXT NOT NULL,
    created_at   TEXT NOT NULL
);`},
	{"0004_scores", `
CREATE TABLE IF NOT EXISTS scores (
    round_id    TEXT PRIMARY KEY,
    level       INTEGER NOT NULL,
    attempts    INTEGER NOT NULL,
    elapsed     TEXT NOT NULL,
    date_label  TEXT NOT NULL,
    ts          INTEGER NOT NULL,
    player_id   TEXT NOT NULL,
    player_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scores_level ON scores(level, attempts, ts);`},
	{"0005_pending_scores", `
CREATE TABLE IF NOT EXISTS pending_scores (
    round_id  TEXT PRIMARY KEY,
    payload   TEXT NOT NULL,
    queued_at INTEGER NOT NULL
);`},
}
