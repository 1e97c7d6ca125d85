package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned when a committed or rolled back session is used.
var ErrSessionClosed = errors.New("session is closed")

// Session is one unit of work: a transaction with an id for log correlation.
//
// Sessions are externally owned. Whoever begins one commits or rolls it
// back; operations handed a session only stage statements in it.
type Session struct {
	id         string
	tx         *sql.Tx
	log        *zap.SugaredLogger
	statements int
	closed     bool
}

// Begin starts a session. The caller must Commit or Rollback it.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin session")
	}
	id := s.newID()
	s.log.Debugw("session begin", "session", id)
	return &Session{
		id:  id,
		tx:  tx,
		log: s.log,
	}, nil
}

// WithSession runs fn in a new session. The session is committed when fn
// returns nil and rolled back when fn returns an error or panics; it is
// released in every case.
//
// The store holds a single connection, so fn must use the session it is
// given rather than opening another.
func (s *Store) WithSession(ctx context.Context, fn func(*Session) error) error {
	sess, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sess.Rollback()
			panic(p)
		}
	}()

	if err := fn(sess); err != nil {
		if rbErr := sess.Rollback(); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}
	return sess.Commit()
}

// ID returns the session id.
func (ss *Session) ID() string {
	return ss.id
}

// Statements returns how many statements the session has executed.
func (ss *Session) Statements() int {
	return ss.statements
}

// Exec runs a statement that returns no rows.
func (ss *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if ss.closed {
		return nil, ErrSessionClosed
	}
	ss.statements++
	ss.log.Debugw("exec", "session", ss.id, "sql", query, "args", args)
	res, err := ss.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "exec in session %s", ss.id)
	}
	return res, nil
}

// Query runs a statement that returns rows. Callers close the rows.
func (ss *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if ss.closed {
		return nil, ErrSessionClosed
	}
	ss.statements++
	ss.log.Debugw("query", "session", ss.id, "sql", query, "args", args)
	rows, err := ss.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query in session %s", ss.id)
	}
	return rows, nil
}

// Commit makes the session's writes durable and closes it.
func (ss *Session) Commit() error {
	if ss.closed {
		return ErrSessionClosed
	}
	ss.closed = true
	if err := ss.tx.Commit(); err != nil {
		ss.log.Warnw("session commit failed", "session", ss.id, "error", err)
		return errors.Wrapf(err, "commit session %s", ss.id)
	}
	ss.log.Debugw("session commit", "session", ss.id, "statements", ss.statements)
	return nil
}

// Rollback discards the session's writes and closes it. Rolling back a
// closed session is a no-op.
func (ss *Session) Rollback() error {
	if ss.closed {
		return nil
	}
	ss.closed = true
	if err := ss.tx.Rollback(); err != nil {
		return errors.Wrapf(err, "rollback session %s", ss.id)
	}
	ss.log.Debugw("session rollback", "session", ss.id, "statements", ss.statements)
	return nil
}
