// internal/game/secret.go
//
// Secret number generation.
// A secret is `level` decimal digits, pairwise distinct, with a non-zero
// first digit. Generation uses crypto/rand with rejection sampling for
// the uniqueness constraint; with at most 5 of 10 digits used the redraw
// loop terminates almost surely.

package game

import (
	"crypto/rand"
	"math/big"
)

// NewSecret generates a fresh secret for the given level.
// The first digit is drawn uniformly from 1-9, each subsequent digit
// uniformly from 0-9 and redrawn while already present. A secret is
// never reused across rounds; callers generate one per round.
func NewSecret(level int) string {
	digits := make([]byte, 0, level)
	digits = append(digits, byte('1'+randInt(9)))
	for len(digits) < level {
		d := byte('0' + randInt(10))
		if !containsDigit(digits, d) {
			digits = append(digits, d)
		}
	}
	return string(digits)
}

// randInt returns a uniform value in [0,n) from crypto/rand.
func randInt(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func containsDigit(digits []byte, d byte) bool {
	for _, x := range digits {
		if x == d {
			return true
		}
	}
	return false
}
