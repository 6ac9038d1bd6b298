package config

import (
	"context"

	"github.com/friendsofgo/errors"
	"github.com/jmoiron/sqlx"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/executor"
	"github.com/nrfta/go-dao/templates"
)

// Runtime is a connected engine built from a Config.
type Runtime struct {
	DB       *sqlx.DB
	Engine   *dao.Engine
	Registry *templates.Registry
}

// Bootstrap connects to the database, loads the templates and builds the
// engine. With Watch set the registry keeps refreshing until Close.
func Bootstrap(ctx context.Context, cfg *Config) (*Runtime, error) {
	d, err := cfg.SQLDialect()
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DataSourceName()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger()
	db, err := executor.Open(ctx, d, dsn)
	if err != nil {
		return nil, err
	}

	opts := []dao.Option{
		dao.WithDialect(d),
		dao.WithLogger(logger),
		dao.WithPageConfig(cfg.PageConfig()),
	}

	registry := cfg.Registry(logger)
	if registry != nil {
		if err := registry.Init(ctx); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "load templates")
		}
		if cfg.Watch {
			if err := registry.Start(context.WithoutCancel(ctx), cfg.RefreshInterval); err != nil {
				db.Close()
				return nil, err
			}
		}
		opts = append(opts, dao.WithRegistry(registry))
	}

	engine := dao.NewEngine(executor.ForDialect(db, d, executor.WithLogger(logger)), opts...)
	logger.WithField("dialect", d.Name()).Info("dao: engine ready")

	return &Runtime{DB: db, Engine: engine, Registry: registry}, nil
}

// Close stops the template refresh and closes the database.
func (r *Runtime) Close() error {
	if r.Registry != nil {
		r.Registry.Stop()
	}
	return r.DB.Close()
}
