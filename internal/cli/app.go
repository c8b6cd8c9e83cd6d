package cli

import (
	"fmt"
	"time"

	"github.com/odochat/odochat/internal/config"
	"github.com/odochat/odochat/internal/history"
	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/routing"
	"github.com/odochat/odochat/internal/session"
	"github.com/odochat/odochat/internal/store"
	"github.com/odochat/odochat/internal/transcript"
	"github.com/odochat/odochat/internal/transport"
)

// app assembles the client: local persistence, the transcript machinery,
// the transport, and the session manager.
type app struct {
	cfg     config.Config
	log     *logging.Logger
	db      *store.DB
	archive *store.Archive
	store   *transcript.Store
	router  *routing.Router
	trans   *transport.Session
	manager *session.Manager
	history *history.Client
}

// buildApp loads config and wires every component. Callers must closeApp.
func buildApp() (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	appLog := log
	if logLevel == "" {
		appLog = logging.Setup(logging.Options{
			Level:        cfg.Logging.Level,
			File:         cfg.Logging.File,
			ConsoleStyle: cfg.Logging.ConsoleStyle,
		})
	}

	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = paths.Database
	}
	db, err := store.Open(dbPath, appLog)
	if err != nil {
		return nil, err
	}

	ts := transcript.NewStore(appLog)
	acc := transcript.NewAccumulator(transcript.AccumulatorConfig{
		IdleTimeout: time.Duration(cfg.Stream.IdleTimeoutMs) * time.Millisecond,
	}, ts, appLog)
	cor := transcript.NewCorrelator(ts, appLog)
	router := routing.New(ts, acc, cor, appLog)

	trans := transport.New(transport.Config{
		BaseURL:          cfg.Server.WSURL,
		ReconnectDelay:   time.Duration(cfg.Transport.ReconnectDelayMs) * time.Millisecond,
		HandshakeTimeout: time.Duration(cfg.Transport.HandshakeTimeoutMs) * time.Millisecond,
	}, appLog)

	manager := session.NewManager(store.NewStateStore(db), ts, acc, cor, trans, appLog)

	return &app{
		cfg:     cfg,
		log:     appLog,
		db:      db,
		archive: store.NewArchive(db),
		store:   ts,
		router:  router,
		trans:   trans,
		manager: manager,
		history: history.NewClient(cfg.Server.HTTPURL, appLog),
	}, nil
}

func (a *app) close() {
	a.manager.Stop()
	a.db.Close()
}

// defaultMode resolves the configured initial mode, falling back to agent.
func (a *app) defaultMode() transport.Mode {
	mode, err := transport.ParseMode(a.cfg.Session.Mode)
	if err != nil {
		return transport.ModeAgent
	}
	return mode
}
