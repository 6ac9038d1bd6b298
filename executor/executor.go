// Package executor runs DAO statements on a database/sql connection.
package executor

import (
	"context"
	"database/sql"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/dialect"

	// Drivers for the supported dialects.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Executor adapts a boil.ContextExecutor, such as *sql.DB, *sql.Tx or
// *sqlx.DB, to dao.Executor. Statements arrive with "?" placeholders and
// are rebound to the driver's style.
type Executor struct {
	db       boil.ContextExecutor
	bindType int
	logger   logrus.FieldLogger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger slow statements and failures are reported to.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an Executor on db. bindType is one of the sqlx bind types,
// usually Dialect.BindType().
func New(db boil.ContextExecutor, bindType int, opts ...Option) *Executor {
	e := &Executor{
		db:       db,
		bindType: bindType,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ForDialect returns an Executor on db bound for d.
func ForDialect(db boil.ContextExecutor, d *dialect.Dialect, opts ...Option) *Executor {
	return New(db, d.BindType(), opts...)
}

var _ dao.Executor = (*Executor)(nil)

// Query runs a select and returns every row as a column map.
func (e *Executor) Query(ctx context.Context, query string, args ...any) ([]dao.Row, error) {
	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlx.Rebind(e.bindType, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dao.Row
	for rows.Next() {
		row := map[string]any{}
		if err := sqlx.MapScan(rows, row); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	e.trace(query, start, len(out))
	return out, nil
}

// Exec runs a statement and returns the number of affected rows.
func (e *Executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	start := time.Now()
	res, err := e.db.ExecContext(ctx, sqlx.Rebind(e.bindType, query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	e.trace(query, start, int(n))
	return n, nil
}

// QueryCount runs a single value query. A NULL result counts as zero.
func (e *Executor) QueryCount(ctx context.Context, query string, args ...any) (int64, error) {
	start := time.Now()
	var n sql.NullInt64
	if err := e.db.QueryRowContext(ctx, sqlx.Rebind(e.bindType, query), args...).Scan(&n); err != nil {
		return 0, err
	}
	e.trace(query, start, 1)
	return n.Int64, nil
}

func (e *Executor) trace(query string, start time.Time, rows int) {
	e.logger.WithFields(logrus.Fields{
		"sql":      query,
		"rows":     rows,
		"duration": time.Since(start),
	}).Trace("executor: statement done")
}
