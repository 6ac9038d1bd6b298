package dao

import (
	"github.com/sirupsen/logrus"

	"github.com/nrfta/go-dao/dialect"
	"github.com/nrfta/go-dao/templates"
)

// Engine holds what every proxy shares: the executor, the dialect, the
// template registry and paging defaults. It is safe for concurrent use.
type Engine struct {
	executor Executor
	dialect  *dialect.Dialect
	registry *templates.Registry
	logger   logrus.FieldLogger
	paging   *PageConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialect sets the SQL dialect. Defaults to MySQL.
func WithDialect(d *dialect.Dialect) Option {
	return func(e *Engine) {
		if d != nil {
			e.dialect = d
		}
	}
}

// WithRegistry sets the template registry consulted before deriving
// queries from method names.
func WithRegistry(r *templates.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLogger sets the logger. Statements are logged at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPageConfig sets page size defaults and limits.
func WithPageConfig(cfg *PageConfig) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.paging = cfg
		}
	}
}

// NewEngine returns an Engine running statements on exec.
func NewEngine(exec Executor, opts ...Option) *Engine {
	e := &Engine{
		executor: exec,
		dialect:  dialect.Default(),
		logger:   logrus.StandardLogger(),
		paging:   NewPageConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() *dialect.Dialect {
	return e.dialect
}

// Registry returns the engine's template registry, which may be nil.
func (e *Engine) Registry() *templates.Registry {
	return e.registry
}
