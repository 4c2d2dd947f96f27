package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTwoBullsTwoCows(t *testing.T) {
	out := Evaluate("1243", "1234")
	assert.Equal(t, Outcome{Bulls: 2, Cows: 2}, out)
	assert.False(t, out.IsWin(4))
}

func TestEvaluateExactMatchWins(t *testing.T) {
	out := Evaluate("13579", "13579")
	assert.Equal(t, Outcome{Bulls: 5, Cows: 0}, out)
	assert.True(t, out.IsWin(5))
}

func TestEvaluateNoOverlap(t *testing.T) {
	out := Evaluate("567", "123")
	assert.Equal(t, Outcome{}, out)
}

func TestEvaluateBullsPlusCowsBounded(t *testing.T) {
	secrets := []string{"123", "1234", "13579", "9805", "406"}
	guesses := []string{"321", "4321", "97531", "5089", "640"}
	for i := range secrets {
		out := Evaluate(guesses[i], secrets[i])
		assert.LessOrEqual(t, out.Bulls+out.Cows, len(secrets[i]))
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	first := Evaluate("1243", "1234")
	second := Evaluate("1243", "1234")
	assert.Equal(t, first, second)
}

func TestValidateGuessRuleOrder(t *testing.T) {
	cases := []struct {
		name  string
		guess string
		level int
		prior []string
		kind  ValidationKind
	}{
		{"too short", "12", 3, nil, WrongLength},
		{"too long", "1234", 3, nil, WrongLength},
		{"non digit", "12a", 3, nil, NotDigits},
		{"leading zero", "012", 3, nil, LeadingZero},
		{"duplicate digits", "122", 3, nil, DuplicateDigits},
		{"already tried", "123", 3, []string{"456", "123"}, AlreadyTried},
		// length failure reported before the leading zero it also has
		{"length beats leading zero", "01", 3, nil, WrongLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr := ValidateGuess(tc.guess, tc.level, tc.prior)
			require.NotNil(t, verr)
			assert.Equal(t, tc.kind, verr.Kind)
			assert.Equal(t, string(tc.kind), verr.Error())
		})
	}
}

func TestValidateGuessAccepts(t *testing.T) {
	assert.Nil(t, ValidateGuess("123", 3, nil))
	assert.Nil(t, ValidateGuess("9805", 4, []string{"1234"}))
	assert.Nil(t, ValidateGuess("13579", 5, nil))
}
