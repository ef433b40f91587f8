package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/activitymap"
	"github.com/goliatone/go-auth-client/config"
	"github.com/goliatone/go-auth-client/repository"
	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// app holds the wired session components for one command
type app struct {
	cfg       config.Config
	logger    authclient.Logger
	store     *authclient.SessionStore
	validator *authclient.SessionValidator
	roles     *repository.RoleRecords
	args      []string
	role      string
	closers   []func() error
}

type appOptions struct {
	backend  string
	file     string
	sealKey  string
	rolesDSN string
	role     string
	verbose  bool
}

func parseFlags(args []string, cfg *config.Config) (appOptions, []string, error) {
	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	opts := appOptions{}
	fs.StringVar(&opts.backend, "backend", cfg.Storage.Backend, "storage backend: memory, file, sql or redis")
	fs.StringVar(&opts.file, "file", cfg.Storage.FilePath, "session file for the file backend")
	fs.StringVar(&opts.sealKey, "seal-key", cfg.Storage.SealKey, "hex seal key for the file backend")
	fs.StringVar(&opts.rolesDSN, "roles-dsn", cfg.RolesDSN, "SQLite DSN of the role records database")
	fs.StringVar(&opts.role, "role", "", "role name used by menu when no session exists")
	fs.BoolVar(&opts.verbose, "verbose", cfg.Verbose, "trace logging")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	return opts, fs.Args(), nil
}

func withApp(ctx context.Context, args []string, fn func(*app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, rest, err := parseFlags(args, &cfg)
	if err != nil {
		return err
	}

	cfg.Storage.Backend = opts.backend
	cfg.Storage.FilePath = opts.file
	cfg.Storage.SealKey = opts.sealKey
	cfg.RolesDSN = opts.rolesDSN
	cfg.Verbose = opts.verbose
	cfg.Sanitize()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.args = rest
	a.role = opts.role
	return fn(a)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	base := authclient.NewDefaultLogger(cfg.Verbose)
	provider := authclient.GlogProvider(base)

	a := &app{
		cfg:    cfg,
		logger: provider.GetLogger("sessionctl"),
	}

	backend, closeStorage, err := cfg.Storage.Open(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStorage)

	opts := []authclient.StoreOption{
		authclient.WithStoreConfig(&a.cfg),
		authclient.WithStoreLoggerProvider(provider),
		authclient.WithStoreActivitySink(activitymap.Sink(func(record activitymap.Record) error {
			a.logger.Debug("activity", "verb", record.Verb, "record", print.MaybePrettyJSON(record))
			return nil
		}, activitymap.WithChannel("sessionctl"))),
	}

	if cfg.RolesDSN != "" {
		roles, closeRoles, err := openRoleRecords(ctx, cfg.RolesDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, closeRoles)
		a.roles = roles
		opts = append(opts, authclient.WithRoleLookup(roles))
	}

	a.store = authclient.NewSessionStore(backend, opts...)
	a.validator = authclient.NewSessionValidator(a.store)
	return a, nil
}

func openRoleRecords(ctx context.Context, dsn string) (*repository.RoleRecords, func() error, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open roles database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	mgr := repository.NewManager(db)
	mgr.MustValidate()
	if err := mgr.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate roles database: %w", err)
	}
	return mgr.RoleRecords(), db.Close, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
