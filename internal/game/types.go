// internal/game/types.go
//
// Core type definitions for the cows-and-bulls game engine.
// Defines:
//   - Outcome: result of scoring one guess against the secret.
//   - Attempt: one history entry (guess + outcome, numbered from 1).
//   - Session: state for a single in-progress or won round.

package game

import "time"

// Levels are the recognized difficulty levels (secret lengths).
var Levels = []int{3, 4, 5}

// DefaultLevel is used when no level preference is persisted.
const DefaultLevel = 4

// ValidLevel reports whether l is a recognized difficulty level.
func ValidLevel(l int) bool {
	for _, v := range Levels {
		if v == l {
			return true
		}
	}
	return false
}

// Outcome is the bulls/cows tally for one guess against one secret.
// Bulls count exact-position matches; Cows count digits present in the
// secret but at a different position. Bulls+Cows never exceeds the level.
type Outcome struct {
	Bulls int `json:"bulls"`
	Cows  int `json:"cows"`
}

// Attempt is one accepted guess in a round's history.
type Attempt struct {
	Number  int     `json:"number"` // 1-based attempt index
	Guess   string  `json:"guess"`
	Outcome Outcome `json:"outcome"`
}

// Session holds the state of a single round.
type Session struct {
	RoundID   string    `json:"roundId"`   // opaque unique token per round
	Level     int       `json:"level"`     // secret length (3, 4 or 5)
	Secret    string    `json:"secret"`    // hidden number, digits pairwise distinct
	Attempts  int       `json:"attempts"`  // accepted guesses so far
	StartedAt time.Time `json:"startedAt"` // round start, drives elapsed display
	History   []Attempt `json:"history"`   // accepted guesses in submission order
	Won       bool      `json:"won"`       // terminal for this RoundID
	WonAt     time.Time `json:"wonAt,omitempty"`
}
