package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/purumi/purumi/config"
	"github.com/purumi/purumi/internal/adapters/localstore"
	redisstore "github.com/purumi/purumi/internal/adapters/redis"
	"github.com/purumi/purumi/internal/adapters/supabase"
	"github.com/purumi/purumi/internal/data"
	"github.com/purumi/purumi/internal/ports"
	"github.com/purumi/purumi/internal/service"
)

// DeviceStore is the device persistence the app runs on.
type DeviceStore interface {
	ports.SessionStore
	ports.DraftStore
	ClearAll(ctx context.Context) error
}

var (
	_ DeviceStore = (*localstore.Store)(nil)
	_ DeviceStore = (*redisstore.DeviceStore)(nil)
)

// AppOptions groups the inputs of BuildApp.
type AppOptions struct {
	Config    config.AppConfig
	Navigator ports.Navigator // Required
	Logger    *slog.Logger

	// Redis and DB replace the connections built from Config. The caller
	// keeps ownership of them.
	Redis      redis.UniversalClient
	DB         *sql.DB
	HTTPClient *http.Client
}

// App is the wired application. Close releases everything BuildApp opened.
type App struct {
	Controller *service.AuthSessionController
	Backend    *supabase.Client
	Drafts     *service.DraftService
	// Videos is nil when the database is disabled.
	Videos *service.VideoStatsService
	// Reservations is nil when the database is disabled.
	Reservations *service.ReservationService
	Device       DeviceStore
	DB           *sql.DB

	closers []func() error
}

// BuildApp connects the configured stores and wires the controller. The
// controller is not started.
func BuildApp(ctx context.Context, opts AppOptions) (_ *App, err error) {
	if opts.Navigator == nil {
		return nil, errors.New("navigator is required")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{}
	defer func() {
		if err != nil {
			err = errors.Join(err, app.Close())
		}
	}()

	rdb, err := app.redisClient(ctx, opts, logger)
	if err != nil {
		return nil, err
	}
	app.Device = newDeviceStore(cfg.Storage, rdb)

	verifier, err := newVerifier(ctx, cfg.Backend)
	if err != nil {
		return nil, err
	}
	app.Backend, err = supabase.New(supabase.Config{
		URL:           cfg.Backend.URL,
		AnonKey:       cfg.Backend.AnonKey,
		HTTPClient:    opts.HTTPClient,
		Timeout:       cfg.Backend.Timeout,
		Store:         app.Device,
		Verifier:      verifier,
		RefreshMargin: cfg.Backend.RefreshMargin,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	if app.DB, err = app.database(ctx, opts, logger); err != nil {
		return nil, err
	}

	guard := cfg.Guard.Guard()
	ctrlOpts := service.AuthSessionOptions{
		Backend:   app.Backend,
		Store:     app.Device,
		Navigator: opts.Navigator,
		Guard:     &guard,
		Logger:    logger,
	}
	if app.DB != nil {
		ctrlOpts.Profiles = data.NewProfileRepo(app.DB)
	}
	app.Controller = service.NewAuthSessionController(ctrlOpts)
	app.closers = append(app.closers, app.Controller.Close)

	app.Drafts = service.NewDraftService(service.DraftServiceOptions{Store: app.Device, Logger: logger})

	if app.DB != nil {
		var stats ports.VideoStatsStore = data.NewVideoStatsRepo(app.DB)
		if rdb != nil {
			stats = data.NewCachedVideoStats(data.CachedVideoStatsOptions{
				Store:  stats,
				Client: rdb,
				TTL:    cfg.Redis.StatsCacheTTL,
				Logger: logger,
			})
		}
		app.Videos = service.NewVideoStatsService(service.VideoStatsServiceOptions{
			Store:    stats,
			Identity: app.Controller,
			Logger:   logger,
		})
		app.Reservations = service.NewReservationService(service.ReservationServiceOptions{
			Store:     data.NewReservationRepo(app.DB),
			Drafts:    app.Device,
			Identity:  app.Controller,
			Navigator: opts.Navigator,
			HomePath:  cfg.Guard.HomePath,
			Logger:    logger,
		})
	}

	logger.InfoContext(ctx, "app wired",
		"storage", cfg.Storage.Mode,
		"database", app.DB != nil,
		"token_verification", verifier != nil,
	)
	return app, nil
}

// redisClient returns the injected client, or connects one when Redis
// storage is configured. It returns nil when Redis is not used.
//
//nolint:ireturn // the client may be single, sentinel or cluster.
func (a *App) redisClient(ctx context.Context, opts AppOptions, logger *slog.Logger) (redis.UniversalClient, error) {
	if opts.Redis != nil {
		return opts.Redis, nil
	}
	if opts.Config.Storage.Mode != config.StorageModeRedis {
		return nil, nil
	}
	client, err := ConnectRedis(ctx, opts.Config.Redis, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) database(ctx context.Context, opts AppOptions, logger *slog.Logger) (*sql.DB, error) {
	if opts.DB != nil {
		return opts.DB, nil
	}
	if !opts.Config.Postgres.Enabled {
		return nil, nil
	}
	db, err := ConnectDB(ctx, opts.Config.Postgres, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if opts.Config.Postgres.RunMigrationsOnStart {
		if err := RunMigrations(ctx, db, logger); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func newDeviceStore(cfg config.StorageConfig, rdb redis.UniversalClient) DeviceStore {
	if cfg.Mode == config.StorageModeRedis && rdb != nil {
		if cfg.Prefix != "" {
			return redisstore.NewDeviceStoreWithPrefix(rdb, cfg.Prefix, cfg.DeviceID)
		}
		return redisstore.NewDeviceStore(rdb, cfg.DeviceID)
	}
	return localstore.New(localstore.Options{DraftTTL: cfg.DraftTTL})
}

//nolint:ireturn // the verifier is chosen by configuration.
func newVerifier(ctx context.Context, cfg config.BackendConfig) (supabase.TokenVerifier, error) {
	switch {
	case cfg.JWTSecret != "":
		v, err := supabase.NewHMACVerifier(cfg.JWTSecret, cfg.JWTLeeway)
		if err != nil {
			return nil, fmt.Errorf("create token verifier: %w", err)
		}
		return v, nil
	case cfg.JWKSURL != "":
		v, err := supabase.NewJWKSVerifier(ctx, cfg.Issuer, cfg.JWKSURL)
		if err != nil {
			return nil, fmt.Errorf("create token verifier: %w", err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

// Close stops the controller and closes connections BuildApp opened, in
// reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
