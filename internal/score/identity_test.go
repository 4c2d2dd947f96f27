package score

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityResolveUnset(t *testing.T) {
	ids := NewIdentities(newTestDB(t))
	_, err := ids.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestIdentitySetAndRename(t *testing.T) {
	ctx := context.Background()
	ids := NewIdentities(newTestDB(t))

	first, err := ids.Set(ctx, "Marie-Lou")
	require.NoError(t, err)
	assert.NotEmpty(t, first.PlayerID)
	assert.Equal(t, "Marie-Lou", first.DisplayName)

	// Renaming keeps the stable playerId.
	second, err := ids.Set(ctx, "SuperAce123")
	require.NoError(t, err)
	assert.Equal(t, first.PlayerID, second.PlayerID)
	assert.Equal(t, "SuperAce123", second.DisplayName)

	got, err := ids.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestIdentityNameValidation(t *testing.T) {
	ctx := context.Background()
	ids := NewIdentities(newTestDB(t))

	_, err := ids.Set(ctx, "ab")
	assert.Error(t, err)
	_, err = ids.Set(ctx, "bad!name")
	assert.Error(t, err)
	_, err = ids.Set(ctx, "  ok name  ") // trimmed, then valid
	assert.NoError(t, err)
}

func TestRandomNameIsValid(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.NoError(t, validateName(RandomName()))
	}
}
