package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdig1/vache-taureau/internal/config"
	"github.com/zdig1/vache-taureau/internal/database"
	"github.com/zdig1/vache-taureau/internal/play"
	"github.com/zdig1/vache-taureau/internal/remote"
	"github.com/zdig1/vache-taureau/internal/score"
	"github.com/zdig1/vache-taureau/internal/store"
)

type testEnv struct {
	srv *Server
	db  *sql.DB
	st  *store.SQLite
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{ClientOrigin: "http://localhost:5173", IdentitySecret: "test_secret", ScoresPerLevel: 10, PendingMax: 50}
	st := store.NewSQLite(db)
	ledger := score.NewLedger(db, cfg.ScoresPerLevel)
	ids := score.NewIdentities(db)
	backlog := remote.NewBacklog(db, nil, st, cfg.PendingMax)
	ctrl := play.NewController(st, st, ledger, ids, backlog)
	require.NoError(t, ctrl.Bootstrap(context.Background()))

	return &testEnv{srv: New(cfg, ctrl, ledger, ids, backlog, nil), db: db, st: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

// rigSecret rewrites the persisted session with a known secret and
// reloads the controller, so guesses can be scripted through HTTP.
func (e *testEnv) rigSecret(t *testing.T, secret string) {
	t.Helper()
	ctx := context.Background()
	sess, err := e.st.Load(ctx)
	require.NoError(t, err)
	sess.Secret = secret
	sess.Level = len(secret)
	require.NoError(t, e.st.Save(ctx, sess))
	require.NoError(t, e.srv.ctrl.Bootstrap(ctx))
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRoundStateHidesSecret(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/round", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"secret"`)

	var snap play.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap.RoundID)
	assert.Equal(t, 4, snap.Level)
}

func TestGuessFlow(t *testing.T) {
	e := newTestEnv(t)
	e.rigSecret(t, "1234")

	// Rejected guess: leading zero, no attempt consumed.
	rec := e.do(t, http.MethodPost, "/round/guess", map[string]string{"guess": "0123"})
	require.Equal(t, http.StatusOK, rec.Code)
	var res play.GuessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Accepted)
	assert.Equal(t, "leading_zero", res.ErrorKind)
	assert.Zero(t, res.AttemptCount)

	// Accepted guess.
	rec = e.do(t, http.MethodPost, "/round/guess", map[string]string{"guess": "1243"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Accepted)
	assert.Equal(t, 2, res.Outcome.Bulls)
	assert.Equal(t, 2, res.Outcome.Cows)
	assert.Equal(t, 1, res.AttemptCount)

	// Winning guess without identity: win reported, commit deferred.
	rec = e.do(t, http.MethodPost, "/round/guess", map[string]string{"guess": "1234"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Win)
	assert.Equal(t, "no_identity", res.ErrorKind)
	assert.NotEmpty(t, res.ElapsedDisplay)
}

func TestIdentityThenPendingCommit(t *testing.T) {
	e := newTestEnv(t)
	e.rigSecret(t, "123")

	rec := e.do(t, http.MethodPost, "/round/guess", map[string]string{"guess": "123"})
	require.Equal(t, http.StatusOK, rec.Code)

	// No identity yet.
	rec = e.do(t, http.MethodGet, "/identity", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Setting a name commits the waiting score and sets the cookie.
	rec = e.do(t, http.MethodPost, "/identity", map[string]string{"name": "Marie-Lou"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies())

	rec = e.do(t, http.MethodGet, "/scores?level=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []score.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Marie-Lou", records[0].PlayerName)
	assert.Equal(t, 1, records[0].Attempts)

	rec = e.do(t, http.MethodGet, "/stats/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalGames":1`)
}

func TestChangeLevelConfirmFlow(t *testing.T) {
	e := newTestEnv(t)
	e.rigSecret(t, "1234")

	rec := e.do(t, http.MethodPost, "/round/guess", map[string]string{"guess": "5678"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/round/level", map[string]any{"level": 3})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "confirm_required")

	rec = e.do(t, http.MethodPost, "/round/level", map[string]any{"level": 3, "confirm": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var snap play.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 3, snap.Level)
	assert.Zero(t, snap.AttemptCount)

	rec = e.do(t, http.MethodPost, "/round/level", map[string]any{"level": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetEndpoint(t *testing.T) {
	e := newTestEnv(t)
	before := e.srv.ctrl.RoundID()
	rec := e.do(t, http.MethodPost, "/round/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap play.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotEqual(t, before, snap.RoundID)
}

func TestSyncDisabled(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sync_disabled")

	rec = e.do(t, http.MethodGet, "/sync/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"enabled":false`)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}
