// Package sqlboiler runs condition Specs and page requests against
// SQLBoiler generated models.
//
// Example usage:
//
//	fetcher := sqlboiler.NewFetcher(
//	    func(ctx context.Context, mods ...qm.QueryMod) ([]*models.User, error) {
//	        return models.Users(mods...).All(ctx, db)
//	    },
//	    func(ctx context.Context, mods ...qm.QueryMod) (int64, error) {
//	        return models.Users(mods...).Count(ctx, db)
//	    },
//	    dialect.New(dialect.PostgreSQL{}),
//	)
//
//	spec := condition.New().Eq("status", "active").Desc("created_at")
//	page, err := fetcher.Page(ctx, spec, dao.NewPageRequest(2, 20))
package sqlboiler

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/queries/qm"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/condition"
)

// QueryFunc executes a SQLBoiler query and returns results.
//
// Type parameter T is the SQLBoiler model type (e.g., *models.User).
type QueryFunc[T any] func(ctx context.Context, mods ...qm.QueryMod) ([]T, error)

// CountFunc executes a SQLBoiler count query.
type CountFunc func(ctx context.Context, mods ...qm.QueryMod) (int64, error)

// Fetcher runs Specs through SQLBoiler query functions.
type Fetcher[T any] struct {
	queryFunc QueryFunc[T]
	countFunc CountFunc
	syntax    condition.Syntax
	paging    *dao.PageConfig
}

// Option configures a Fetcher.
type Option func(*options)

type options struct {
	paging *dao.PageConfig
}

// WithPageConfig sets the page size defaults applied by Page.
func WithPageConfig(cfg *dao.PageConfig) Option {
	return func(o *options) {
		o.paging = cfg
	}
}

// NewFetcher creates a Fetcher. syn quotes identifiers and must match the
// database the models live in.
func NewFetcher[T any](queryFunc QueryFunc[T], countFunc CountFunc, syn condition.Syntax, opts ...Option) *Fetcher[T] {
	o := options{paging: dao.NewPageConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Fetcher[T]{
		queryFunc: queryFunc,
		countFunc: countFunc,
		syntax:    syn,
		paging:    o.paging,
	}
}

// Find returns the rows matching spec, honouring its orderings and limit.
func (f *Fetcher[T]) Find(ctx context.Context, spec *condition.Spec) ([]T, error) {
	mods, err := SpecToQueryMods(f.syntax, spec)
	if err != nil {
		return nil, err
	}
	return f.queryFunc(ctx, mods...)
}

// Count returns the number of rows matching the filter of spec.
func (f *Fetcher[T]) Count(ctx context.Context, spec *condition.Spec) (int64, error) {
	mods, err := FilterMods(f.syntax, spec)
	if err != nil {
		return 0, err
	}
	return f.countFunc(ctx, mods...)
}

// Page returns one page of the rows matching spec. The count is skipped
// when req carries a known total, and the query when the page starts past
// the last row. A limit on spec is replaced by the page window.
func (f *Fetcher[T]) Page(ctx context.Context, spec *condition.Spec, req *dao.PageRequest) (*dao.Pageable[T], error) {
	req = f.paging.Apply(req)
	if spec == nil {
		spec = condition.New()
	}

	total := req.TotalElements
	if total <= 0 {
		var err error
		if total, err = f.Count(ctx, spec); err != nil {
			return nil, err
		}
	}
	if total == 0 || int64(req.Offset()) >= total {
		return dao.NewPageable[T](req, total, nil), nil
	}

	data, err := f.Find(ctx, spec.Clone().Limit(req.Offset(), req.Size))
	if err != nil {
		return nil, err
	}
	return dao.NewPageable(req, total, data), nil
}
