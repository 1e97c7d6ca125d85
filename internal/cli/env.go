package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/dbobject/internal/config"
	"github.com/roach88/dbobject/internal/entity"
	"github.com/roach88/dbobject/internal/logging"
	"github.com/roach88/dbobject/internal/schema"
	"github.com/roach88/dbobject/internal/store"
)

// Env is an open database with the schema's record types registered.
type Env struct {
	Config *config.Config
	Log    *zap.SugaredLogger
	Store  *store.Store
	Types  []*schema.RecordType
}

// loadConfig reads the config file and applies flag overrides.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.SchemaDir != "" {
		cfg.Schema.Dir = o.SchemaDir
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// logger builds the command logger. Output goes to stderr.
func (o *RootOptions) logger(cfg *config.Config) (*zap.SugaredLogger, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	return log, nil
}

// openEnv loads config and schema, opens the database and makes sure every
// table exists.
func (o *RootOptions) openEnv(ctx context.Context) (*Env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := o.logger(cfg)
	if err != nil {
		return nil, err
	}

	result, loadErrs := LoadRecordTypes(cfg.Schema.Dir, LoadModeFailFast)
	if len(loadErrs) > 0 {
		return nil, loadExitError(loadErrs[0])
	}

	st, err := store.Open(cfg.Database.Path,
		store.WithLogger(log),
		store.WithBusyTimeout(cfg.Database.BusyTimeoutMS),
		store.WithJournalMode(cfg.Database.JournalMode),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to open database", err)
	}

	for _, rt := range result.Types {
		if err := st.Register(rt); err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to register record type", err)
		}
	}
	if err := st.EnsureTables(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, ErrCodeDatabase+": failed to create tables", err)
	}

	return &Env{Config: cfg, Log: log, Store: st, Types: result.Types}, nil
}

// Close closes the database and flushes the logger.
func (e *Env) Close() error {
	_ = e.Log.Sync()
	return e.Store.Close()
}

// Table binds a table of the schema.
func (e *Env) Table(name string) (*entity.Table, error) {
	t, err := entity.Bind(e.Store, name)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: unknown table %q", ErrCodeNotFound, name))
	}
	return t, nil
}

// loadExitError turns a schema load error into a command error.
func loadExitError(err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return NewExitError(ExitCommandError, loadErr.Error())
	}
	return WrapExitError(ExitCommandError, ErrCodeGeneric, err)
}

// operationError maps an entity error to an exit error. Store failures
// are runtime failures; everything else is a usage problem.
func operationError(msg string, err error) error {
	if entity.IsStoreError(err) {
		return WrapExitError(ExitFailure, ErrCodeDatabase+": "+msg, err)
	}
	return WrapExitError(ExitCommandError, msg, err)
}
