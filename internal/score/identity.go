// internal/score/identity.go
//
// Player identity: a stable opaque playerId generated once, plus a
// display name chosen by the player or auto-generated. The ledger only
// requires that an identity be resolvable before a record is committed;
// its absence is a recoverable precondition, not a fatal error.

package score

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identity is the persisted player attribution for score records.
type Identity struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

// Identities stores the single local player identity.
type Identities struct {
	db *sql.DB
}

// NewIdentities wraps an opened, migrated database handle.
func NewIdentities(db *sql.DB) *Identities { return &Identities{db: db} }

// Resolve returns the stored identity, or ErrNoIdentity when none has
// been set yet.
func (i *Identities) Resolve(ctx context.Context) (Identity, error) {
	var id Identity
	err := i.db.QueryRowContext(ctx,
		`SELECT player_id, display_name FROM identity WHERE slot=1`).Scan(&id.PlayerID, &id.DisplayName)
	if err == sql.ErrNoRows {
		return Identity{}, ErrNoIdentity
	}
	return id, err
}

// Set stores the display name, generating the stable playerId on first
// use and preserving it on later renames.
func (i *Identities) Set(ctx context.Context, name string) (Identity, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return Identity{}, err
	}

	existing, err := i.Resolve(ctx)
	switch {
	case err == nil:
		existing.DisplayName = name
	case errors.Is(err, ErrNoIdentity):
		existing = Identity{PlayerID: "player_" + uuid.NewString(), DisplayName: name}
	default:
		return Identity{}, err
	}

	_, err = i.db.ExecContext(ctx, `
        INSERT INTO identity (slot, player_id, display_name, created_at) VALUES (1, ?, ?, ?)
        ON CONFLICT(slot) DO UPDATE SET display_name=excluded.display_name`,
		existing.PlayerID, existing.DisplayName, time.Now().UTC().Format(time.RFC3339))
	return existing, err
}

// validateName enforces the display-name rules: 3 to 24 characters,
// letters/digits/spaces/hyphen/underscore only.
func validateName(name string) error {
	if len(name) < 3 || len(name) > 24 {
		return errors.New("display name must be 3–24 chars")
	}
	for _, r := range name {
		ok := r == ' ' || r == '-' || r == '_' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
		if !ok {
			return errors.New("display name: letters, digits, spaces, -, _ only")
		}
	}
	return nil
}

var (
	nameAdjectives = []string{"Super", "Mega", "Ultra", "Hyper", "Swift", "Clever", "Lucky"}
	nameNouns      = []string{"Player", "Champion", "Expert", "Master", "Pro", "Ace", "Guru"}
)

// RandomName builds an anonymous display name: adjective + noun + a
// three-digit number.
func RandomName() string {
	adj := nameAdjectives[randIndex(len(nameAdjectives))]
	noun := nameNouns[randIndex(len(nameNouns))]
	return fmt.Sprintf("%s%s%d", adj, noun, 100+randIndex(900))
}

func randIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}
