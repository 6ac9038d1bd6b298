package executor

import (
	"context"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"

	"github.com/nrfta/go-dao/dialect"
)

// Open connects to dsn with the driver of d and pings the database.
func Open(ctx context.Context, d *dialect.Dialect, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, d.DriverName(), dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", d.Name())
	}
	return db, nil
}
