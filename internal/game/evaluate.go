// internal/game/evaluate.go
//
// Guess validation and scoring.
// Responsibilities:
//   - Validate candidate guesses against format rules (length, digits,
//     leading zero, uniqueness, already-tried) in a fixed order where the
//     first failing rule wins and short-circuits scoring.
//   - Score a valid guess against the secret: a digit in the right place
//     is a bull, a digit present elsewhere in the secret is a cow.
//
// Both Evaluate and ValidateGuess are pure functions.

package game

// ValidationKind identifies which format rule a guess violated.
// Values are stable strings surfaced to clients as errorKind.
type ValidationKind string

const (
	WrongLength     ValidationKind = "wrong_length"
	NotDigits       ValidationKind = "not_digits"
	LeadingZero     ValidationKind = "leading_zero"
	DuplicateDigits ValidationKind = "duplicate_digits"
	AlreadyTried    ValidationKind = "already_tried"
)

// ValidationError is a user-correctable guess rejection. It carries no
// state change: a rejected guess consumes no attempt.
type ValidationError struct {
	Kind ValidationKind
}

func (e *ValidationError) Error() string { return string(e.Kind) }

// ValidateGuess checks a candidate guess against the format rules for a
// round at the given level. prior holds the guesses already accepted this
// round. Returns nil when the guess may be scored.
//
// Rule order (first failure wins):
//  1. length must equal level
//  2. all characters must be decimal digits
//  3. first digit must not be zero
//  4. digits must be pairwise distinct
//  5. guess must not repeat an earlier guess of this round
func ValidateGuess(guess string, level int, prior []string) *ValidationError {
	if len(guess) != level {
		return &ValidationError{Kind: WrongLength}
	}
	for i := 0; i < len(guess); i++ {
		if guess[i] < '0' || guess[i] > '9' {
			return &ValidationError{Kind: NotDigits}
		}
	}
	if guess[0] == '0' {
		return &ValidationError{Kind: LeadingZero}
	}
	var seen [10]bool
	for i := 0; i < len(guess); i++ {
		d := guess[i] - '0'
		if seen[d] {
			return &ValidationError{Kind: DuplicateDigits}
		}
		seen[d] = true
	}
	for _, p := range prior {
		if p == guess {
			return &ValidationError{Kind: AlreadyTried}
		}
	}
	return nil
}

// Evaluate scores a guess against a secret of equal length.
// For each position i: a digit of the guess that occurs anywhere in the
// secret counts as a bull when the positions match, as a cow otherwise.
// Digits are pairwise distinct on both sides, so no multiset bookkeeping
// is needed. The guess wins iff Bulls == len(secret).
func Evaluate(guess, secret string) Outcome {
	var out Outcome
	for i := 0; i < len(guess) && i < len(secret); i++ {
		if !containsDigit([]byte(secret), guess[i]) {
			continue
		}
		if guess[i] == secret[i] {
			out.Bulls++
		} else {
			out.Cows++
		}
	}
	return out
}

// IsWin reports whether the outcome fully matches a secret at the level.
func (o Outcome) IsWin(level int) bool { return o.Bulls == level }
