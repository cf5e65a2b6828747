// Package app wires the application together: configuration, store, remote
// connection pool, transfer engine, registry, conflict gate, coordinator,
// event bridge, notifier, and session state. The CLI builds one App per
// invocation.
package app

import (
	"database/sql"
	"fmt"

	"github.com/portside-app/portside/internal/config"
	"github.com/portside-app/portside/internal/crypto"
	"github.com/portside-app/portside/internal/engine"
	"github.com/portside-app/portside/internal/events"
	"github.com/portside-app/portside/internal/logging"
	"github.com/portside-app/portside/internal/notify"
	"github.com/portside-app/portside/internal/remote"
	"github.com/portside-app/portside/internal/state"
	"github.com/portside-app/portside/internal/store"
	"github.com/portside-app/portside/internal/transfer"
)

// App owns every long-lived component of a portside process.
type App struct {
	Config *config.Config
	Logger *logging.Logger
	Bus    *events.EventBus

	DB        *sql.DB
	Hosts     *store.HostStore
	History   *store.HistoryStore
	Bookmarks *store.BookmarkStore
	Resume    *store.ResumeStore

	Conns       *remote.Manager
	Engine      *engine.Service
	Registry    *transfer.Registry
	Gate        *transfer.ConflictGate
	Coordinator *transfer.Coordinator
	Bridge      *EventBridge
	Notifier    *notify.Notifier
	Session     *state.Session
}

// New builds an App from configuration. The dialer supplies protocol
// clients; everything else is constructed here. Shutdown must be called
// to release the database and pooled connections.
func New(cfg *config.Config, dialer remote.Dialer, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}

	if err := config.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("failed to prepare data directories: %w", err)
	}

	key, err := secrets.LoadOrCreateKey(config.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store.Configure(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)

	bus := events.NewEventBus(0)

	conns := remote.NewManager(dialer, bus)
	history := store.NewHistoryStore(db)
	resume := store.NewResumeStore(db)

	eng := engine.New(bus, conns, history, resume, logger)
	eng.SetRetryConfig(engine.RetryConfig{
		MaxRetries:   cfg.Transfers.MaxRetries,
		InitialDelay: cfg.Transfers.InitialDelay(),
		MaxDelay:     cfg.Transfers.MaxDelay(),
	})
	registry := transfer.NewRegistry(eng, history)
	gate := transfer.NewConflictGate()
	coordinator := transfer.NewCoordinator(registry, gate, eng, conns, logger)
	session := state.NewSession(conns, conns)
	session.SetShowHidden(cfg.UI.ShowHidden)
	notifier := notify.NewNotifier(cfg.Notifications.Enabled, logger)
	bridge := NewEventBridge(bus, registry, notifier, session, logger)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Bus:         bus,
		DB:          db,
		Hosts:       store.NewHostStore(db, key),
		History:     history,
		Bookmarks:   store.NewBookmarkStore(db),
		Resume:      resume,
		Conns:       conns,
		Engine:      eng,
		Registry:    registry,
		Gate:        gate,
		Coordinator: coordinator,
		Bridge:      bridge,
		Notifier:    notifier,
		Session:     session,
	}, nil
}

// Startup begins event delivery. Call before dispatching transfers.
func (a *App) Startup() error {
	return a.Bridge.Start()
}

// Shutdown tears the application down in reverse dependency order.
func (a *App) Shutdown() {
	a.Bridge.Stop()
	a.Conns.CloseAll()
	a.Bus.Close()
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close database")
	}
}
