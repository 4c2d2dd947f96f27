// internal/remote/store.go
//
// Interface to the remote score store. The core treats the remote as an
// unreliable, possibly-absent collaborator: a document of score records
// guarded by an opaque revision token. Transports are pluggable; the
// core never hardcodes a protocol and never holds credentials beyond
// passing an opaque token to the transport it was built with.

package remote

import (
	"context"
	"errors"

	"github.com/zdig1/vache-taureau/internal/score"
)

// Document is the remote score file: the full record list plus the
// concurrency token the next Put must present.
type Document struct {
	Scores     []score.Record `json:"scores"`
	LastUpdate string         `json:"lastUpdate,omitempty"`
	TotalGames int            `json:"totalGames,omitempty"`

	// Rev is the revision token returned by Fetch and required by Put.
	// Not part of the document body.
	Rev string `json:"-"`
}

// ErrConflict is returned by Put when the presented revision is stale;
// the caller re-fetches and re-applies.
var ErrConflict = errors.New("remote: stale revision")

// Store is the remote transport. Fetch returns the current document
// (empty with an empty Rev when none exists yet); Put replaces it,
// failing with ErrConflict when another writer won the race.
type Store interface {
	Fetch(ctx context.Context) (Document, error)
	Put(ctx context.Context, doc Document) error
}
