package dao

import (
	"context"
	"reflect"

	"github.com/friendsofgo/errors"
	"github.com/sirupsen/logrus"

	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/dialect"
	"github.com/nrfta/go-dao/entity"
)

// Base provides the built-in operations of a DAO over entity T. Embed it
// in a DAO struct and create the DAO with CreateProxy.
type Base[T any] struct {
	engine *Engine
	class  entity.Class
	owner  string
}

func (b *Base[T]) bindBase(e *Engine, owner string) (entity.Class, error) {
	class, err := entity.For[T]()
	if err != nil {
		return nil, err
	}
	b.engine, b.class, b.owner = e, class, owner
	return class, nil
}

// Class returns the metadata of T.
func (b *Base[T]) Class() entity.Class {
	return b.class
}

// TableName returns the table T maps to.
func (b *Base[T]) TableName() string {
	return b.class.TableName()
}

// PrimaryKey returns the primary key column of T, or "" when T has none.
func (b *Base[T]) PrimaryKey() string {
	pk, ok := b.class.PrimaryKey()
	if !ok {
		return ""
	}
	return pk.Column
}

func (b *Base[T]) requirePK(method string) (string, error) {
	if b.engine == nil {
		return "", &ResolutionError{Owner: b.owner, Method: method, Reason: "DAO was not created with CreateProxy"}
	}
	pk := b.PrimaryKey()
	if pk == "" {
		return "", &ResolutionError{Owner: b.owner, Method: method, Reason: b.class.Name() + " has no primary key"}
	}
	return pk, nil
}

// FindByID returns the entity with the given primary key, or nil.
func (b *Base[T]) FindByID(ctx context.Context, id any) (*T, error) {
	pk, err := b.requirePK("FindByID")
	if err != nil {
		return nil, err
	}
	query := b.engine.dialect.FindByID(b.TableName(), entity.SelectList(b.class), pk)
	rows, err := b.query(ctx, "FindByID", query, id)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	out := new(T)
	if err := decodeRow(rows[0], b.class, reflect.ValueOf(out).Elem()); err != nil {
		return nil, &MappingError{Owner: b.owner, Method: "FindByID", Target: b.class.Name(), Err: err}
	}
	return out, nil
}

// Exists reports whether a row with the given primary key exists.
func (b *Base[T]) Exists(ctx context.Context, id any) (bool, error) {
	pk, err := b.requirePK("Exists")
	if err != nil {
		return false, err
	}
	n, err := b.count(ctx, "Exists", b.engine.dialect.Exists(b.TableName(), pk), id)
	return n > 0, err
}

// Save inserts v. Empty uuid tagged fields are filled first and a zero
// primary key is left to the database.
func (b *Base[T]) Save(ctx context.Context, v *T) (int64, error) {
	if b.engine == nil {
		return 0, &ResolutionError{Owner: b.owner, Method: "Save", Reason: "DAO was not created with CreateProxy"}
	}
	entity.EnsureUUID(b.class, v)
	cols, err := b.columns(v)
	if err != nil {
		return 0, err
	}
	if pk := b.PrimaryKey(); pk != "" {
		cols = dropZero(cols, pk)
	}
	query, params := b.engine.dialect.Save(b.TableName(), cols)
	return b.exec(ctx, "Save", query, params...)
}

// Update writes every persistent column of v, keyed by its primary key.
func (b *Base[T]) Update(ctx context.Context, v *T) (int64, error) {
	pk, err := b.requirePK("Update")
	if err != nil {
		return 0, err
	}
	cols, err := b.columns(v)
	if err != nil {
		return 0, err
	}
	query, params, err := b.engine.dialect.Update(b.TableName(), pk, cols)
	if err != nil {
		return 0, err
	}
	return b.exec(ctx, "Update", query, params...)
}

// DeleteByID deletes the row with the given primary key.
func (b *Base[T]) DeleteByID(ctx context.Context, id any) (int64, error) {
	pk, err := b.requirePK("DeleteByID")
	if err != nil {
		return 0, err
	}
	return b.exec(ctx, "DeleteByID", b.engine.dialect.DeleteByID(b.TableName(), pk), id)
}

// FindBySpec returns the rows matching spec, honouring its orderings and
// limit.
func (b *Base[T]) FindBySpec(ctx context.Context, spec *condition.Spec) ([]T, error) {
	if b.engine == nil {
		return nil, &ResolutionError{Owner: b.owner, Method: "FindBySpec", Reason: "DAO was not created with CreateProxy"}
	}
	query, params, err := b.engine.dialect.SimpleQuery(b.TableName(), entity.SelectList(b.class), spec)
	if err != nil {
		return nil, err
	}
	rows, err := b.query(ctx, "FindBySpec", query, params...)
	if err != nil {
		return nil, err
	}
	return b.mapAll("FindBySpec", rows)
}

// CountBySpec counts the rows matching spec.
func (b *Base[T]) CountBySpec(ctx context.Context, spec *condition.Spec) (int64, error) {
	if b.engine == nil {
		return 0, &ResolutionError{Owner: b.owner, Method: "CountBySpec", Reason: "DAO was not created with CreateProxy"}
	}
	query, params, err := b.engine.dialect.Count(b.TableName(), spec)
	if err != nil {
		return 0, err
	}
	return b.count(ctx, "CountBySpec", query, params...)
}

// DeleteBySpec deletes the rows matching spec. An empty spec is refused.
func (b *Base[T]) DeleteBySpec(ctx context.Context, spec *condition.Spec) (int64, error) {
	if b.engine == nil {
		return 0, &ResolutionError{Owner: b.owner, Method: "DeleteBySpec", Reason: "DAO was not created with CreateProxy"}
	}
	query, params, err := b.engine.dialect.Delete(b.TableName(), spec)
	if err != nil {
		return 0, err
	}
	return b.exec(ctx, "DeleteBySpec", query, params...)
}

// PageBySpec returns one page of the rows matching spec. A limit on spec
// is replaced by the page window.
func (b *Base[T]) PageBySpec(ctx context.Context, spec *condition.Spec, req *PageRequest) (*Pageable[T], error) {
	if b.engine == nil {
		return nil, &ResolutionError{Owner: b.owner, Method: "PageBySpec", Reason: "DAO was not created with CreateProxy"}
	}
	if spec == nil {
		spec = condition.New()
	}
	req = b.engine.paging.Apply(req)

	total := req.TotalElements
	if total <= 0 {
		var err error
		if total, err = b.CountBySpec(ctx, spec); err != nil {
			return nil, err
		}
	}
	if total == 0 || int64(req.Offset()) >= total {
		return NewPageable[T](req, total, nil), nil
	}

	paged := spec.Clone().Limit(req.Offset(), req.Size)
	data, err := b.FindBySpec(ctx, paged)
	if err != nil {
		return nil, err
	}
	return NewPageable(req, total, data), nil
}

func (b *Base[T]) columns(v *T) ([]dialect.Column, error) {
	if v == nil {
		return nil, errors.Errorf("dao %s: nil %s", b.owner, b.class.Name())
	}
	values, err := entity.Values(b.class, v)
	if err != nil {
		return nil, err
	}
	cols := make([]dialect.Column, len(values))
	for i, cv := range values {
		cols[i] = dialect.Column{Name: cv.Field.Column, Value: cv.Value}
	}
	return cols, nil
}

func dropZero(cols []dialect.Column, name string) []dialect.Column {
	for i, c := range cols {
		if c.Name == name && (c.Value == nil || reflect.ValueOf(c.Value).IsZero()) {
			return append(cols[:i:i], cols[i+1:]...)
		}
	}
	return cols
}

func (b *Base[T]) mapAll(method string, rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		var item T
		if err := decodeRow(row, b.class, reflect.ValueOf(&item).Elem()); err != nil {
			return nil, &MappingError{Owner: b.owner, Method: method, Target: b.class.Name(), Err: err}
		}
		out = append(out, item)
	}
	return out, nil
}

func (b *Base[T]) query(ctx context.Context, method, query string, params ...any) ([]Row, error) {
	b.log(method, query, params)
	rows, err := b.engine.executor.Query(ctx, query, params...)
	if err != nil {
		return nil, &ExecutionError{Owner: b.owner, Method: method, SQL: query, Params: params, Err: err}
	}
	return rows, nil
}

func (b *Base[T]) count(ctx context.Context, method, query string, params ...any) (int64, error) {
	b.log(method, query, params)
	n, err := b.engine.executor.QueryCount(ctx, query, params...)
	if err != nil {
		return 0, &ExecutionError{Owner: b.owner, Method: method, SQL: query, Params: params, Err: err}
	}
	return n, nil
}

func (b *Base[T]) exec(ctx context.Context, method, query string, params ...any) (int64, error) {
	b.log(method, query, params)
	n, err := b.engine.executor.Exec(ctx, query, params...)
	if err != nil {
		return 0, &ExecutionError{Owner: b.owner, Method: method, SQL: query, Params: params, Err: err}
	}
	return n, nil
}

func (b *Base[T]) log(method, query string, params []any) {
	b.engine.logger.WithFields(logrus.Fields{
		"dao":    b.owner,
		"method": method,
		"sql":    query,
		"params": params,
	}).Debug("dao: execute")
}
