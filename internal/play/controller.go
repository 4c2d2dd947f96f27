// internal/play/controller.go
//
// Session controller: the single owner of the mutable game session.
// Responsibilities:
//   - Bootstrap: restore the persisted round or start a fresh one.
//   - Guess: evaluate, advance state, persist, and on a win commit the
//     score exactly once per roundId and hand it to the sync backlog.
//   - Reset / level change (with an explicit-confirmation precondition
//     when a round is in progress).
//
// All transitions run under one mutex, so guesses are processed strictly
// in submission order and the persistence write for a guess completes
// before the next guess is accepted. Persistence failures degrade to
// in-memory play with a warning; they never block the guessing loop.

package play

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zdig1/vache-taureau/internal/game"
	"github.com/zdig1/vache-taureau/internal/score"
	"github.com/zdig1/vache-taureau/internal/store"
)

// ErrConfirmRequired is returned by ChangeLevel when switching away from
// a round that already has accepted guesses without confirmation. The
// caller re-issues the call with confirmed=true after asking the player.
var ErrConfirmRequired = errors.New("play: level change discards the active round, confirmation required")

// ErrUnknownLevel is returned for levels outside the recognized set.
var ErrUnknownLevel = errors.New("play: unknown level")

// Ledger is the slice of the score package the controller commits to.
type Ledger interface {
	Commit(ctx context.Context, r score.Record) error
}

// Backlog receives committed records for best-effort remote forwarding.
type Backlog interface {
	Enqueue(ctx context.Context, r score.Record) error
}

// Identities resolves the player attribution required for a commit.
type Identities interface {
	Resolve(ctx context.Context) (score.Identity, error)
}

// GuessResult is the per-guess payload emitted to the presentation layer.
type GuessResult struct {
	Accepted       bool          `json:"accepted"`
	ErrorKind      string        `json:"errorKind,omitempty"` // validation kind, or "no_identity" on a win without a player name
	Outcome        *game.Outcome `json:"outcome,omitempty"`
	Win            bool          `json:"isWin"`
	AttemptCount   int           `json:"attemptCount"`
	ElapsedDisplay string        `json:"elapsedDisplay,omitempty"` // set on win
}

// Snapshot is the presentation view of the current round. The secret is
// exposed only as its length.
type Snapshot struct {
	RoundID      string         `json:"roundId"`
	Level        int            `json:"level"`
	AttemptCount int            `json:"attemptCount"`
	History      []game.Attempt `json:"history"`
	Won          bool           `json:"won"`
	StartedAt    time.Time      `json:"startedAt"`
}

// Controller owns the active session and its collaborators.
type Controller struct {
	mu         sync.Mutex
	session    *game.Session
	sessions   store.SessionStore
	settings   store.Settings
	ledger     Ledger
	backlog    Backlog
	identities Identities
	syncNudge  func() // optional: pokes the sync worker after an enqueue
	now        func() time.Time
}

// Option tweaks controller construction.
type Option func(*Controller)

// WithSyncNudge installs a callback invoked after a record is enqueued,
// typically remote.Worker.Trigger.
func WithSyncNudge(f func()) Option { return func(c *Controller) { c.syncNudge = f } }

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// NewController wires the session controller. backlog may be nil when
// remote sync is disabled.
func NewController(sessions store.SessionStore, settings store.Settings, ledger Ledger, identities Identities, backlog Backlog, opts ...Option) *Controller {
	c := &Controller{
		sessions:   sessions,
		settings:   settings,
		ledger:     ledger,
		identities: identities,
		backlog:    backlog,
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Bootstrap restores the persisted session, or starts a fresh round at
// the persisted level preference (default level when none). Corrupt or
// missing saved state silently becomes a new round.
func (c *Controller) Bootstrap(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess, err := c.sessions.Load(ctx); err == nil {
		c.session = sess
		log.Info().Str("roundId", sess.RoundID).Int("attempts", sess.Attempts).Msg("resumed saved round")
		return nil
	} else if !errors.Is(err, store.ErrNoSession) {
		log.Warn().Err(err).Msg("session load failed, starting fresh")
	}

	return c.freshLocked(ctx, c.preferredLevel(ctx))
}

// Guess processes one submitted guess end to end.
func (c *Controller) Guess(ctx context.Context, raw string) (GuessResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		if err := c.freshLocked(ctx, c.preferredLevel(ctx)); err != nil {
			return GuessResult{}, err
		}
	}
	sess := c.session
	now := c.now()

	if sess.Won {
		// Terminal round: treat any further guess as already tried.
		return GuessResult{
			Accepted:     false,
			ErrorKind:    string(game.AlreadyTried),
			AttemptCount: sess.Attempts,
		}, nil
	}

	out, verr := sess.Apply(raw, now)
	if verr != nil {
		return GuessResult{
			Accepted:     false,
			ErrorKind:    string(verr.Kind),
			AttemptCount: sess.Attempts,
		}, nil
	}

	// Durably record the accepted guess before anything else can run;
	// a failure degrades to in-memory play.
	if err := c.sessions.Save(ctx, sess); err != nil {
		log.Warn().Err(err).Msg("session persist failed, playing in memory")
	}

	res := GuessResult{
		Accepted:     true,
		Outcome:      &out,
		AttemptCount: sess.Attempts,
	}
	if !sess.Won {
		return res, nil
	}

	res.Win = true
	res.ElapsedDisplay = sess.ElapsedDisplay(now)
	if err := c.commitWinLocked(ctx, sess, res.ElapsedDisplay); err != nil {
		if errors.Is(err, score.ErrNoIdentity) {
			// The win still stands; the score can be committed after the
			// player picks a name.
			res.ErrorKind = "no_identity"
			return res, nil
		}
		log.Warn().Err(err).Str("roundId", sess.RoundID).Msg("score commit failed")
	}
	return res, nil
}

// commitWinLocked commits the finished round's score exactly once per
// roundId; the guard survives restarts because it is persisted with the
// settings. Duplicate calls (re-entrant submits, reload races) are no-ops.
func (c *Controller) commitWinLocked(ctx context.Context, sess *game.Session, elapsed string) error {
	committed, err := c.settings.Get(ctx, store.KeyCommittedRound)
	if err != nil {
		return err
	}
	if committed == sess.RoundID {
		return nil
	}

	id, err := c.identities.Resolve(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	rec := score.Record{
		RoundID:    sess.RoundID,
		Level:      sess.Level,
		Attempts:   sess.Attempts,
		Elapsed:    elapsed,
		DateLabel:  now.Format("02/01/2006"),
		Timestamp:  now.UnixMilli(),
		PlayerID:   id.PlayerID,
		PlayerName: id.DisplayName,
	}
	if err := c.ledger.Commit(ctx, rec); err != nil {
		return err
	}
	if err := c.settings.Set(ctx, store.KeyCommittedRound, sess.RoundID); err != nil {
		log.Warn().Err(err).Msg("persist committed-round guard")
	}

	if c.backlog != nil {
		if err := c.backlog.Enqueue(ctx, rec); err != nil {
			log.Warn().Err(err).Str("roundId", rec.RoundID).Msg("enqueue score for sync")
		} else if c.syncNudge != nil {
			c.syncNudge()
		}
	}
	return nil
}

// CommitPending retries the score commit for a won round that could not
// be committed earlier (no identity at win time). No-op when the round
// is not won or was already committed.
func (c *Controller) CommitPending(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || !c.session.Won {
		return nil
	}
	return c.commitWinLocked(ctx, c.session, c.session.ElapsedDisplay(c.now()))
}

// Reset starts a new round at the current level. Callable at any time.
func (c *Controller) Reset(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	level := game.DefaultLevel
	if c.session != nil {
		level = c.session.Level
	}
	if err := c.freshLocked(ctx, level); err != nil {
		return Snapshot{}, err
	}
	return c.snapshotLocked(), nil
}

// ChangeLevel switches difficulty. Switching away from a round with
// accepted guesses requires confirmed=true; the precondition is surfaced
// as ErrConfirmRequired rather than blocking on any prompt here.
func (c *Controller) ChangeLevel(ctx context.Context, newLevel int, confirmed bool) (Snapshot, error) {
	if !game.ValidLevel(newLevel) {
		return Snapshot{}, ErrUnknownLevel
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Level != newLevel && c.session.Attempts > 0 && !c.session.Won && !confirmed {
		return Snapshot{}, ErrConfirmRequired
	}
	if err := c.freshLocked(ctx, newLevel); err != nil {
		return Snapshot{}, err
	}
	return c.snapshotLocked(), nil
}

// State returns the presentation snapshot of the current round.
func (c *Controller) State(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		if err := c.freshLocked(ctx, c.preferredLevel(ctx)); err != nil {
			return Snapshot{}, err
		}
	}
	return c.snapshotLocked(), nil
}

// RoundID returns the current round identifier; async completions
// compare against it and no-op when their round has been superseded.
func (c *Controller) RoundID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.RoundID
}

// freshLocked replaces the session with a brand-new round and persists
// it together with the level preference. The committed-round guard for
// the previous round is deliberately left in place so a replayed win
// cannot re-commit.
func (c *Controller) freshLocked(ctx context.Context, level int) error {
	c.session = game.NewSession(level, c.now())
	if err := c.settings.Set(ctx, store.KeyLevel, strconv.Itoa(level)); err != nil {
		log.Warn().Err(err).Msg("persist level preference")
	}
	if err := c.sessions.Save(ctx, c.session); err != nil {
		log.Warn().Err(err).Msg("persist new round, playing in memory")
	}
	log.Info().Str("roundId", c.session.RoundID).Int("level", level).Msg("new round")
	return nil
}

func (c *Controller) preferredLevel(ctx context.Context) int {
	v, err := c.settings.Get(ctx, store.KeyLevel)
	if err != nil || v == "" {
		return game.DefaultLevel
	}
	if lv, err := strconv.Atoi(v); err == nil && game.ValidLevel(lv) {
		return lv
	}
	return game.DefaultLevel
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.session
	return Snapshot{
		RoundID:      s.RoundID,
		Level:        s.Level,
		AttemptCount: s.Attempts,
		History:      append([]game.Attempt(nil), s.History...),
		Won:          s.Won,
		StartedAt:    s.StartedAt,
	}
}
