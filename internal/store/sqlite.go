// internal/store/sqlite.go
//
// SQLite-backed SessionStore + Settings.
// The active round is written as a versioned JSON envelope into a
// single-slot table after every mutation; a restart restores it verbatim.
// Anything that does not parse back into an internally consistent session
// (missing row, schema version mismatch, malformed JSON, broken history)
// is treated as absent and the offending row discarded.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zdig1/vache-taureau/internal/game"
)

// envelopeVersion guards the persisted session schema. Bump it when the
// session shape changes; older payloads are then rejected on load.
const envelopeVersion = 1

// envelope is the persisted session wrapper.
type envelope struct {
	Version int           `json:"version"`
	Session *game.Session `json:"session"`
}

// SQLite persists the session slot and settings rows in an opened DB.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an opened, migrated database handle.
func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

// Save writes the session envelope into the single slot row.
func (s *SQLite) Save(ctx context.Context, sess *game.Session) error {
	payload, err := json.Marshal(envelope{Version: envelopeVersion, Session: sess})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO session (slot, payload, updated_at) VALUES (1, ?, ?)
        ON CONFLICT(slot) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// Load restores the saved session. A missing, stale-versioned, malformed
// or inconsistent payload yields ErrNoSession; the bad row is dropped so
// the next load is clean.
func (s *SQLite) Load(ctx context.Context) (*game.Session, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM session WHERE slot=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if jsonErr := json.Unmarshal([]byte(payload), &env); jsonErr != nil {
		log.Warn().Err(jsonErr).Msg("discarding malformed saved session")
		_ = s.Clear(ctx)
		return nil, ErrNoSession
	}
	if env.Version != envelopeVersion || env.Session == nil || !env.Session.Consistent() {
		log.Warn().Int("version", env.Version).Msg("discarding unusable saved session")
		_ = s.Clear(ctx)
		return nil, ErrNoSession
	}
	return env.Session, nil
}

// Clear removes the session slot.
func (s *SQLite) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE slot=1`)
	return err
}

// Get returns a settings value, "" when the key is unset.
func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// Set upserts a settings value.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}
