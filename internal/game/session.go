// internal/game/session.go
//
// Round lifecycle for a single cows-and-bulls session.
// Responsibilities:
//   - Create sessions with a fresh secret and round identifier.
//   - Validate and apply guesses (attempt counting, history, win flag).
//   - Format the elapsed-time display shown on a win.
//
// A Session is a plain value with no I/O; persistence and score commits
// are wired around it by the play controller.

package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSession starts a fresh round at the given level. The previous
// session, if any, is simply superseded; its roundId never recurs.
func NewSession(level int, now time.Time) *Session {
	return &Session{
		RoundID:   uuid.NewString(),
		Level:     level,
		Secret:    NewSecret(level),
		StartedAt: now,
		History:   []Attempt{},
	}
}

// Apply validates and scores a guess, mutating the session state.
// On a validation failure the session is unchanged and no attempt is
// consumed. On success the attempt counter advances, the attempt is
// appended to history, and the win flag flips when all digits match.
func (s *Session) Apply(guess string, now time.Time) (Outcome, *ValidationError) {
	prior := make([]string, len(s.History))
	for i, a := range s.History {
		prior[i] = a.Guess
	}
	if verr := ValidateGuess(guess, s.Level, prior); verr != nil {
		return Outcome{}, verr
	}

	out := Evaluate(guess, s.Secret)
	s.Attempts++
	s.History = append(s.History, Attempt{Number: s.Attempts, Guess: guess, Outcome: out})

	if out.IsWin(s.Level) {
		s.Won = true
		s.WonAt = now
	}
	return out, nil
}

// PriorGuesses returns the guesses accepted so far, in submission order.
func (s *Session) PriorGuesses() []string {
	out := make([]string, len(s.History))
	for i, a := range s.History {
		out[i] = a.Guess
	}
	return out
}

// ElapsedDisplay formats the time since the round started as "Xm Ys",
// omitting the minutes part when it is zero. For a won session the
// display is frozen at the moment of the win.
func (s *Session) ElapsedDisplay(now time.Time) string {
	end := now
	if s.Won && !s.WonAt.IsZero() {
		end = s.WonAt
	}
	return FormatElapsed(end.Sub(s.StartedAt))
}

// FormatElapsed renders a duration as "Xm Ys" or "Ys".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m, sec := total/60, total%60
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

// Consistent reports whether the session's required fields hold together:
// a recognized level, a secret of matching length with distinct non-zero-
// leading digits, a history whose attempt numbers run 1..Attempts, and a
// roundId. Used by the persistence adapter to reject corrupt saved state.
func (s *Session) Consistent() bool {
	if s == nil || s.RoundID == "" || !ValidLevel(s.Level) {
		return false
	}
	if ValidateGuess(s.Secret, s.Level, nil) != nil {
		return false
	}
	if s.Attempts != len(s.History) {
		return false
	}
	for i, a := range s.History {
		if a.Number != i+1 || len(a.Guess) != s.Level {
			return false
		}
	}
	return true
}
