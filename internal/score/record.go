// internal/score/record.go
//
// Score record shape shared by the local ledger and the remote sync
// backlog. Records are keyed by the roundId of the session that produced
// them; re-saving the same roundId overwrites rather than duplicates.

package score

import "errors"

// Record is one completed round's result.
type Record struct {
	RoundID    string `json:"roundId"`
	Level      int    `json:"level"`
	Attempts   int    `json:"attempts"`
	Elapsed    string `json:"elapsed"`  // display string, e.g. "1m 35s"
	DateLabel  string `json:"date"`     // human date shown in score tables
	Timestamp  int64  `json:"timestamp"` // epoch milliseconds
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// ErrNoIdentity is returned by Commit when no player identity has been
// resolved yet. The round result itself is unaffected; the caller prompts
// for a name and may retry the commit.
var ErrNoIdentity = errors.New("score: no player identity")

// dedupWindowMs is the tolerance window for the fallback duplicate
// heuristic: a record from the same player with the same level and
// attempt count inside this window is a retried double-submit from
// before roundId tracking existed.
const dedupWindowMs = 5000
