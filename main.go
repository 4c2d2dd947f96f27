package main

import (
	"context"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zdig1/vache-taureau/internal/config"
	"github.com/zdig1/vache-taureau/internal/database"
	"github.com/zdig1/vache-taureau/internal/httpserver"
	"github.com/zdig1/vache-taureau/internal/play"
	"github.com/zdig1/vache-taureau/internal/remote"
	"github.com/zdig1/vache-taureau/internal/score"
	"github.com/zdig1/vache-taureau/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	st := store.NewSQLite(db)
	ledger := score.NewLedger(db, cfg.ScoresPerLevel)
	ids := score.NewIdentities(db)

	var rs remote.Store
	if cfg.RemoteURL != "" {
		rs = remote.NewHTTPStore(cfg.RemoteURL, cfg.RemoteToken)
	}
	backlog := remote.NewBacklog(db, rs, st, cfg.PendingMax)

	var worker *remote.Worker
	opts := []play.Option{}
	if rs != nil {
		worker = remote.NewWorker(backlog, cfg.SyncInterval)
		opts = append(opts, play.WithSyncNudge(worker.Trigger))
	}

	// First run: seed the level preference so Bootstrap starts at the
	// configured difficulty rather than the built-in default.
	if v, err := st.Get(ctx, store.KeyLevel); err == nil && v == "" {
		_ = st.Set(ctx, store.KeyLevel, strconv.Itoa(cfg.DefaultLevel))
	}

	ctrl := play.NewController(st, st, ledger, ids, backlog, opts...)
	if err := ctrl.Bootstrap(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap game session")
	}

	if worker != nil {
		go worker.Run(ctx)
	}

	srv := httpserver.New(cfg, ctrl, ledger, ids, backlog, worker)
	log.Info().Str("addr", cfg.Addr).Str("db", cfg.DBPath).Bool("sync", rs != nil).Msg("starting vache-taureau server")
	if err := srv.Start(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
