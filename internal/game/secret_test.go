package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecretShape(t *testing.T) {
	for _, level := range Levels {
		for i := 0; i < 200; i++ {
			s := NewSecret(level)
			require.Len(t, s, level)
			assert.NotEqual(t, byte('0'), s[0], "secret %q has a leading zero", s)

			var seen [10]bool
			for j := 0; j < len(s); j++ {
				require.GreaterOrEqual(t, s[j], byte('0'))
				require.LessOrEqual(t, s[j], byte('9'))
				d := s[j] - '0'
				assert.False(t, seen[d], "secret %q repeats digit %c", s, s[j])
				seen[d] = true
			}
		}
	}
}

func TestNewSecretIsAValidGuess(t *testing.T) {
	// Every generated secret must itself pass guess validation, otherwise
	// the round could never be won.
	for i := 0; i < 100; i++ {
		s := NewSecret(5)
		assert.Nil(t, ValidateGuess(s, 5, nil))
	}
}
