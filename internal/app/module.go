package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/matheus3301/huddle/internal/bus"
	"github.com/matheus3301/huddle/internal/config"
	"github.com/matheus3301/huddle/internal/contacts"
	"github.com/matheus3301/huddle/internal/control"
	"github.com/matheus3301/huddle/internal/delivery"
	"github.com/matheus3301/huddle/internal/identity"
	"github.com/matheus3301/huddle/internal/lock"
	"github.com/matheus3301/huddle/internal/logging"
	"github.com/matheus3301/huddle/internal/messages"
	"github.com/matheus3301/huddle/internal/profile"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/status"
	"github.com/matheus3301/huddle/internal/store"
	"github.com/matheus3301/huddle/internal/tui"
	"github.com/matheus3301/huddle/internal/tui/model"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile    string
	Config     *config.Config
	SocketPath string // optional override for testing; empty = use default
	Console    bool   // tee logs to stderr; off while the TUI owns the terminal
}

// Module returns the fx module for one profile, composing all providers and
// lifecycle hooks. The TUI is only built when something asks for *tui.App.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Options(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Module("huddle",
			fx.Supply(p),
			fx.Provide(
				provideLogger,
				provideBus,
				provideStateMachine,
				provideLock,
				provideStore,
				provideScheduler,
				provideDirectory,
				provideMessages,
				provideIdentity,
				provideSession,
				provideControlService,
				provideServer,
				provideViewModel,
				provideTUI,
			),
			fx.Invoke(registerLifecycle),
		),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, logging.Options{Console: p.Console})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock")
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore takes the lock so the database is never opened by a second
// instance.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", db.Path()))
	return db, nil
}

func provideScheduler(logger *zap.Logger) *delivery.Scheduler {
	return delivery.NewScheduler(logger.Named("delivery"))
}

func provideDirectory(db *store.DB, logger *zap.Logger) *contacts.Directory {
	return contacts.New(db, logger.Named("contacts"))
}

func provideMessages(p Params, db *store.DB, b *bus.Bus, sched *delivery.Scheduler, dir *contacts.Directory, logger *zap.Logger) *messages.Store {
	return messages.New(db, b, sched, logger.Named("messages"), messages.Options{
		DeliveryDelay: p.Config.Delivery.Delay.Duration,
		Contacts:      dir,
	})
}

func provideIdentity(p Params) *identity.Simulated {
	id := p.Config.Identity
	return identity.NewSimulated(identity.Config{
		ClientID:    id.ClientID,
		RedirectURL: id.RedirectURL,
		Scopes:      id.Scopes,
		Delay:       id.SignInDelay.Duration,
		Fail:        id.Fail,
	})
}

// provideSession registers the directory before the message store: the
// message store validates recipients against loaded contacts.
func provideSession(db *store.DB, b *bus.Bus, m *status.Machine, auth *identity.Simulated, dir *contacts.Directory, msgs *messages.Store, logger *zap.Logger) *session.Store {
	return session.New(db, b, m, auth, logger.Named("session"), dir, msgs)
}

func provideControlService(p Params, sess *session.Store, dir *contacts.Directory, msgs *messages.Store, b *bus.Bus) *control.Service {
	return control.NewService(p.Profile, sess, dir, msgs, b)
}

func provideServer(p Params, svc *control.Service, _ *lock.Lock, logger *zap.Logger) (*control.Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = profile.SocketPath(p.Profile)
	}
	return control.NewServer(socketPath, svc, logger.Named("control"))
}

func provideViewModel(sess *session.Store, dir *contacts.Directory, msgs *messages.Store) *model.ViewModel {
	return model.NewViewModel(sess, dir, msgs)
}

func provideTUI(p Params, vm *model.ViewModel, b *bus.Bus, auth *identity.Simulated, logger *zap.Logger) *tui.App {
	return tui.NewApp(vm, b, auth, logger.Named("tui"), tui.Options{
		Profile:      p.Profile,
		CompactWidth: p.Config.UI.CompactWidth,
	})
}

func registerLifecycle(lc fx.Lifecycle, srv *control.Server, lk *lock.Lock, db *store.DB, sess *session.Store, msgs *messages.Store, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if u, ok := sess.Restore(); ok {
				logger.Info("session restored", zap.String("user", u.ID))
			} else {
				logger.Info("no stored session, sign in required")
			}

			// Serve the control socket in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("control server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			msgs.Close()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("huddle stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
