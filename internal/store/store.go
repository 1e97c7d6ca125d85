package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/roach88/dbobject/internal/querysql"
	"github.com/roach88/dbobject/internal/schema"
)

// Default connection settings.
const (
	DefaultBusyTimeoutMS = 5000
	DefaultJournalMode   = "WAL"
)

// Store is a SQLite database serving a registry of record types.
type Store struct {
	db       *sql.DB
	registry *schema.Registry
	log      *zap.SugaredLogger
	newID    func() string
}

// Option configures a Store.
type Option func(*options)

type options struct {
	log         *zap.SugaredLogger
	registry    *schema.Registry
	busyTimeout int
	journalMode string
	newID       func() string
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) { o.log = log }
}

// WithRegistry serves an existing registry instead of a new empty one.
func WithRegistry(reg *schema.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithBusyTimeout sets how long a connection waits on a locked database.
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.busyTimeout = ms }
}

// WithJournalMode sets the SQLite journal mode.
func WithJournalMode(mode string) Option {
	return func(o *options) { o.journalMode = mode }
}

// WithIDGenerator sets the session id generator. The default produces
// UUIDv7 strings.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

func buildOptions(opts []Option) options {
	o := options{
		busyTimeout: DefaultBusyTimeoutMS,
		journalMode: DefaultJournalMode,
		newID:       func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}
	if o.registry == nil {
		o.registry = schema.NewRegistry()
	}
	return o
}

// Open creates or opens a SQLite database at the given path.
//
// The database is configured with:
//   - WAL journal mode (configurable) for concurrent reads during writes
//   - NORMAL synchronous mode
//   - a busy timeout for lock contention (5 seconds by default)
//   - foreign key enforcement
//
// The pool is pinned to one connection: SQLite allows a single writer, and
// an in-memory database only exists on the connection that created it.
func Open(path string, opts ...Option) (*Store, error) {
	o := buildOptions(opts)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connect to database %s", path)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, o); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "apply pragmas")
	}

	o.log.Debugw("database opened", "path", path, "journal_mode", o.journalMode)
	return newStore(db, o), nil
}

// New wraps an already open database handle. No pragmas are applied.
func New(db *sql.DB, opts ...Option) *Store {
	return newStore(db, buildOptions(opts))
}

func newStore(db *sql.DB, o options) *Store {
	return &Store{
		db:       db,
		registry: o.registry,
		log:      o.log,
		newID:    o.newID,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Logger returns the store's logger.
func (s *Store) Logger() *zap.SugaredLogger {
	return s.log
}

// Registry returns the record types this store serves.
func (s *Store) Registry() *schema.Registry {
	return s.registry
}

// Register adds a record type to the store's registry.
func (s *Store) Register(rt *schema.RecordType) error {
	if err := s.registry.Register(rt); err != nil {
		return err
	}
	meta, _ := rt.Introspect()
	s.log.Infow("record type registered",
		"table", rt.Table,
		"identity", meta.Identity,
		"temporal", meta.Temporal,
		"match_columns", rt.MatchColumns)
	return nil
}

// EnsureTables creates every registered table, and the unique index over
// its match columns, if missing. The registry is frozen afterwards.
func (s *Store) EnsureTables(ctx context.Context) error {
	s.registry.Freeze()
	return s.WithSession(ctx, func(sess *Session) error {
		for _, rt := range s.registry.Types() {
			ddl, err := querysql.CreateTable(rt)
			if err != nil {
				return errors.Wrapf(err, "table %s", rt.Table)
			}
			if _, err := sess.Exec(ctx, ddl); err != nil {
				return errors.Wrapf(err, "create table %s", rt.Table)
			}
			if idx, ok := querysql.CreateMatchIndex(rt); ok {
				if _, err := sess.Exec(ctx, idx); err != nil {
					return errors.Wrapf(err, "create match index on %s", rt.Table)
				}
			}
		}
		return nil
	})
}

func applyPragmas(db *sql.DB, o options) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", o.journalMode),
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute %q", pragma)
		}
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return errors.Wrapf(err, "query %s", name)
	}
	if value != expected {
		return errors.Newf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
