package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mesh-intelligence/pawcart/internal/api"
	"github.com/mesh-intelligence/pawcart/internal/cart"
	"github.com/mesh-intelligence/pawcart/internal/paths"
	"github.com/mesh-intelligence/pawcart/internal/session"
	"github.com/mesh-intelligence/pawcart/internal/sqlite"
	"github.com/mesh-intelligence/pawcart/pkg/types"
)

// sessionExpiredMessage is printed when a refresh fails and the stored
// session has been cleared.
const sessionExpiredMessage = "Your session has expired. Run 'pawcart login' to log in again."

// app holds the handles one command run works with. The root pre-run fills
// it; the post-run or Execute releases it.
type app struct {
	flags    rootFlags
	settings settings

	out    io.Writer
	errOut io.Writer

	logger     *zap.Logger
	backend    types.Backend
	session    *session.Manager
	client     *api.Client
	carts      *cart.Service
	reconciler *cart.Reconciler
}

// open resolves configuration, attaches storage, and wires the session,
// API client, cart service and reconciler.
func (a *app) open(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemf("resolve config dir: %w", err)
	}
	s, err := resolveSettings(configDir, a.flags.dataDir)
	if err != nil {
		return err
	}
	a.settings = s

	logger, err := newLogger(s.logLevel, a.flags.verbose)
	if err != nil {
		return err
	}
	a.logger = logger

	backend := sqlite.NewBackend(sqlite.WithLogger(logger.Named("storage")))
	if err := backend.Attach(s.storage); err != nil {
		return systemf("attach storage: %w", err)
	}
	a.backend = backend

	notifier := cart.Notifiers{cart.NewWriterNotifier(a.errOut), cart.NewLogNotifier(logger)}

	store := session.NewStore(backend)
	a.client = api.New(s.client.APIURL, store,
		api.WithTimeout(s.client.RequestTimeout),
		api.WithLogger(logger.Named("api")),
		api.WithSessionExpiredHook(a.sessionExpired),
	)
	a.session = session.NewManager(store, a.client, logger.Named("session"))

	state, err := cart.LoadState(backend, logger.Named("state"))
	if err != nil {
		logger.Warn("cart state unavailable", zap.Error(err))
	}
	a.carts = cart.NewService(a.client, a.session, cart.NewTokens(backend), state,
		cart.WithNotifier(notifier),
		cart.WithLogger(logger.Named("cart")),
	)
	a.reconciler = cart.NewReconciler(a.carts)

	a.session.OnLogin(func(ctx context.Context, u types.User) {
		if _, err := a.reconciler.Trigger(ctx, types.TriggerAuthChange); err != nil {
			a.logger.Debug("merge after login", zap.Error(err))
		}
	})
	a.session.OnLogout(a.carts.ResetUser)
	return nil
}

// close detaches storage and flushes the logger. Safe to call more than once.
func (a *app) close() error {
	var err error
	if a.backend != nil {
		err = a.backend.Detach()
		a.backend = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
		a.logger = nil
	}
	return err
}

// autoMerge runs the startup merge for an existing session.
func (a *app) autoMerge(ctx context.Context) {
	if !a.settings.client.AutoMerge || !a.session.IsAuthenticated() {
		return
	}
	if _, err := a.reconciler.Trigger(ctx, types.TriggerAuthMount); err != nil {
		a.logger.Debug("startup merge", zap.Error(err))
	}
}

// sessionExpired is the client's hook after a failed refresh.
func (a *app) sessionExpired() {
	a.carts.ResetUser()
	fmt.Fprintln(a.errOut, sessionExpiredMessage)
}

// newLogger builds the production zap logger at level, or debug when
// verbose is set.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgKeyLogLevel, err)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, systemf("initialize logger: %w", err)
	}
	return logger, nil
}
