// internal/httpserver/server.go
//
// HTTP wiring for the Vache-Taureau backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Round endpoints: GET /round, POST /round/guess, /round/reset, /round/level.
//   - Score endpoints: GET /scores, GET /stats/me.
//   - Identity endpoints: GET/POST /identity (signed player cookie).
//   - Sync endpoints: POST /sync (manual trigger), GET /sync/status.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so the cookie works).
//   - The presentation layer never mutates game state except through the
//     controller's documented transitions.
//   - All game-path failures degrade to playable responses; only truly
//     unservable reads return 500.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/zdig1/vache-taureau/internal/config"
	"github.com/zdig1/vache-taureau/internal/play"
	"github.com/zdig1/vache-taureau/internal/remote"
	"github.com/zdig1/vache-taureau/internal/score"
)

// Server bundles the router and the game's collaborators.
type Server struct {
	r       *chi.Mux
	cfg     *config.Config
	ctrl    *play.Controller
	ledger  *score.Ledger
	ids     *score.Identities
	backlog *remote.Backlog
	worker  *remote.Worker // nil when sync is disabled
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg *config.Config, ctrl *play.Controller, ledger *score.Ledger, ids *score.Identities, backlog *remote.Backlog, worker *remote.Worker) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, ctrl: ctrl, ledger: ledger, ids: ids, backlog: backlog, worker: worker}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin))          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"vache-taureau","endpoints":["/health","/round","POST /round/guess","/scores","/identity","POST /sync"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Round lifecycle
	s.r.Get("/round", s.handleRoundState)
	s.r.Post("/round/guess", s.handleGuess)
	s.r.Post("/round/reset", s.handleReset)
	s.r.Post("/round/level", s.handleChangeLevel)

	// Scores + stats
	s.r.Get("/scores", s.handleScores)
	s.r.Get("/stats/me", s.handleStats)

	// Identity
	s.r.Get("/identity", s.handleGetIdentity)
	s.r.Post("/identity", s.handleSetIdentity)

	// Sync
	s.r.Post("/sync", s.handleSyncNow)
	s.r.Get("/sync/status", s.handleSyncStatus)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ ROUND --------------------------------------

func (s *Server) handleRoundState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.State(r.Context())
	if err != nil {
		http.Error(w, `{"error":"state_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

// guessReq is the payload for POST /round/guess.
type guessReq struct {
	Guess string `json:"guess"`
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	res, err := s.ctrl.Guess(r.Context(), req.Guess)
	if err != nil {
		log.Error().Err(err).Msg("guess failed")
		http.Error(w, `{"error":"guess_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctrl.Reset(r.Context())
	if err != nil {
		http.Error(w, `{"error":"reset_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

// levelReq is the payload for POST /round/level. Confirm acknowledges
// that switching levels mid-round discards the active round.
type levelReq struct {
	Level   int  `json:"level"`
	Confirm bool `json:"confirm"`
}

func (s *Server) handleChangeLevel(w http.ResponseWriter, r *http.Request) {
	var req levelReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	snap, err := s.ctrl.ChangeLevel(r.Context(), req.Level, req.Confirm)
	switch {
	case errors.Is(err, play.ErrUnknownLevel):
		http.Error(w, `{"error":"unknown_level"}`, http.StatusBadRequest)
		return
	case errors.Is(err, play.ErrConfirmRequired):
		http.Error(w, `{"error":"confirm_required"}`, http.StatusConflict)
		return
	case err != nil:
		http.Error(w, `{"error":"level_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(snap)
}

// ------------------------------ SCORES -------------------------------------

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	level := 0
	if v := r.URL.Query().Get("level"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, `{"error":"bad_level"}`, http.StatusBadRequest)
			return
		}
		level = n
	}
	records, err := s.ledger.Query(r.Context(), level)
	if err != nil {
		http.Error(w, `{"error":"unknown_level"}`, http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(records)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id, err := s.ids.Resolve(r.Context())
	if errors.Is(err, score.ErrNoIdentity) {
		http.Error(w, `{"error":"no_identity"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"identity_failed"}`, http.StatusInternalServerError)
		return
	}
	stats, err := s.ledger.StatsFor(r.Context(), id.PlayerID)
	if err != nil {
		http.Error(w, `{"error":"stats_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"displayName": id.DisplayName,
		"stats":       stats,
	})
}

// ------------------------------ IDENTITY -----------------------------------

func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := s.ids.Resolve(r.Context())
	if errors.Is(err, score.ErrNoIdentity) {
		http.Error(w, `{"error":"no_identity"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"identity_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(id)
}

// identityReq is the payload for POST /identity. An empty name asks for
// an auto-generated one.
type identityReq struct {
	Name string `json:"name"`
}

func (s *Server) handleSetIdentity(w http.ResponseWriter, r *http.Request) {
	var req identityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = score.RandomName()
	}
	id, err := s.ids.Set(r.Context(), req.Name)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	// A win that was waiting on an identity can be committed now.
	if err := s.ctrl.CommitPending(r.Context()); err != nil {
		log.Warn().Err(err).Msg("commit pending score after identity set")
	}

	if tok, exp, err := s.signPlayerToken(id); err == nil {
		s.setPlayerCookie(w, tok, exp)
	} else {
		log.Warn().Err(err).Msg("sign player token")
	}
	_ = json.NewEncoder(w).Encode(id)
}

// ------------------------------- SYNC --------------------------------------

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "sync_disabled"})
		return
	}
	s.worker.Trigger()
	n, _ := s.backlog.PendingCount(r.Context())
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "pending": n})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	n, err := s.backlog.PendingCount(r.Context())
	if err != nil {
		http.Error(w, `{"error":"status_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"enabled":  s.worker != nil,
		"pending":  n,
		"lastSync": s.backlog.LastSync(r.Context()),
	})
}

// ------------------------------ player cookie ------------------------------

const playerCookieName = "vache_player"

// signPlayerToken creates an HS256 JWT asserting the stable playerId and
// display name, expiring in 180 days.
func (s *Server) signPlayerToken(id score.Identity) (string, time.Time, error) {
	exp := time.Now().Add(180 * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"playerId": id.PlayerID,
		"name":     id.DisplayName,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.IdentitySecret))
	return ss, exp, err
}

// setPlayerCookie writes the identity cookie with appropriate security
// attributes.
func (s *Server) setPlayerCookie(w http.ResponseWriter, token string, exp time.Time) {
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}
