// internal/store/store.go
//
// Persistence interfaces for game sessions and small durable settings.
// Implementations may be backed by memory (development/tests, degraded
// in-memory play) or SQLite (the durable default).

package store

import (
	"context"
	"errors"

	"github.com/zdig1/vache-taureau/internal/game"
)

// ErrNoSession is returned by Load when no usable saved session exists.
// Partial or corrupt saved state is reported the same way: the caller
// starts a fresh round instead of crashing on bad bytes.
var ErrNoSession = errors.New("store: no saved session")

// SessionStore persists the single active round. Save is called after
// every state-mutating transition so that a restart reconstructs an
// identical session.
type SessionStore interface {
	Save(ctx context.Context, s *game.Session) error
	Load(ctx context.Context) (*game.Session, error)
	Clear(ctx context.Context) error
}

// Settings is a small durable key/value map for the handful of scalar
// keys that live alongside the session (level preference, committed
// round guard, last sync timestamp).
type Settings interface {
	// Get returns the stored value, or "" when the key is unset.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Durable settings keys.
const (
	KeyLevel          = "level"
	KeyCommittedRound = "committedRoundId"
	KeyLastSync       = "lastSyncTimestamp"
)
