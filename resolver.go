package dao

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/friendsofgo/errors"
	"github.com/sirupsen/logrus"

	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/derive"
	"github.com/nrfta/go-dao/entity"
)

type statementKind int

const (
	kindQuery statementKind = iota
	kindCount
	kindExec
)

// statement is a rendered call, ready to execute.
type statement struct {
	kind   statementKind
	sql    string
	params []any
	// spec is set for derived statements so a page count can reuse it.
	spec *condition.Spec
}

// plan resolves and runs one DAO method. Everything in it is fixed when the
// proxy is created; the template is looked up on every call so registry
// reloads take effect.
type plan struct {
	engine  *Engine
	method  Method
	class   entity.Class
	sig     *signature
	names   []string
	derived *derive.Query
	rows    entity.Class
}

func newPlan(e *Engine, m Method, class entity.Class) (*plan, error) {
	sig, err := analyze(m.Type())
	if err != nil {
		return nil, &ResolutionError{Owner: m.Owner(), Method: m.Name(), Reason: err.Error()}
	}
	p := &plan{
		engine: e,
		method: m,
		class:  class,
		sig:    sig,
		names:  paramNames(m, len(sig.args)),
	}

	if sig.elem != nil {
		if p.rows, err = entity.Of(sig.elem); err != nil {
			return nil, &ResolutionError{Owner: m.Owner(), Method: m.Name(), Reason: err.Error()}
		}
	}

	var opts []derive.Option
	if sel, ok := m.Tag(TagSelect); ok && sel != "" {
		opts = append(opts, derive.WithSelect(sel))
	}
	q, err := derive.Parse(m.Name(), class, opts...)
	switch {
	case errors.Is(err, derive.ErrNotDerivable):
		if !p.hasTemplate() {
			e.logger.WithFields(logrus.Fields{"dao": m.Owner(), "method": m.Name()}).
				Warn("dao: method has no template and is not a derived query")
		}
		return p, nil
	case err != nil:
		if p.hasTemplate() {
			return p, nil
		}
		return nil, err
	}
	if err := p.checkDerived(q); err != nil {
		if p.hasTemplate() {
			return p, nil
		}
		return nil, err
	}
	p.derived = q
	return p, nil
}

func (p *plan) hasTemplate() bool {
	if p.engine.registry == nil {
		return false
	}
	_, ok := p.engine.registry.Get(p.method.Owner(), p.method.Name())
	return ok
}

// checkDerived verifies that the signature fits the derived query.
func (p *plan) checkDerived(q *derive.Query) error {
	fail := func(format string, args ...any) error {
		return &ResolutionError{Owner: p.method.Owner(), Method: p.method.Name(), Reason: fmt.Sprintf(format, args...)}
	}
	if n := q.ParamCount(); n != len(p.sig.args) {
		return fail("derived query takes %d arguments, method declares %d", n, len(p.sig.args))
	}
	shape := p.sig.shape
	switch q.Kind {
	case derive.Count:
		if shape != shapeInt {
			return fail("count methods must return an integer")
		}
	case derive.Exists:
		if shape != shapeBool && shape != shapeInt {
			return fail("exists methods must return bool")
		}
	case derive.Delete:
		if shape != shapeInt && shape != shapeNone && shape != shapeBool {
			return fail("delete methods must return an integer, bool or only error")
		}
	default:
		if shape == shapeNone || shape == shapeBool || shape == shapeInt {
			return fail("find methods must return rows")
		}
	}
	if p.sig.paged() && q.Kind != derive.Find {
		return fail("only find methods can be paged")
	}
	return nil
}

// call is the reflect.MakeFunc body of a proxy method.
func (p *plan) call(in []reflect.Value) []reflect.Value {
	ctx := context.Background()
	if p.sig.ctxIndex >= 0 {
		if c, ok := in[p.sig.ctxIndex].Interface().(context.Context); ok && c != nil {
			ctx = c
		}
	}
	var req *PageRequest
	if p.sig.pageIndex >= 0 {
		req, _ = in[p.sig.pageIndex].Interface().(*PageRequest)
	}
	args := make([]any, len(p.sig.args))
	for i, idx := range p.sig.args {
		args[i] = in[idx].Interface()
	}

	v, err := p.run(ctx, args, req)
	return p.sig.results(v, err)
}

func (p *plan) run(ctx context.Context, args []any, req *PageRequest) (reflect.Value, error) {
	st, err := p.statement(args)
	if err != nil {
		return reflect.Value{}, err
	}
	if p.sig.paged() {
		return p.page(ctx, st, req)
	}

	switch {
	case st.kind == kindExec:
		n, err := p.exec(ctx, st)
		if err != nil {
			return reflect.Value{}, err
		}
		return p.number(n), nil
	case st.kind == kindCount || p.sig.shape == shapeInt || p.sig.shape == shapeBool:
		n, err := p.count(ctx, st.sql, st.params)
		if err != nil {
			return reflect.Value{}, err
		}
		return p.number(n), nil
	}

	rows, err := p.query(ctx, st.sql, st.params)
	if err != nil {
		return reflect.Value{}, err
	}
	v, err := p.mapResult(rows)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reflect.Value{}, err
		}
		return reflect.Value{}, &MappingError{Owner: p.method.Owner(), Method: p.method.Name(), Target: p.sig.result.String(), Err: err}
	}
	return v, nil
}

// statement picks the template when the registry has one, else the derived
// query, and renders it.
func (p *plan) statement(args []any) (*statement, error) {
	if p.engine.registry != nil {
		if t, ok := p.engine.registry.Get(p.method.Owner(), p.method.Name()); ok {
			query, params, err := t.Bind(p.templateData(args))
			if err != nil {
				return nil, &ResolutionError{Owner: p.method.Owner(), Method: p.method.Name(), Reason: err.Error()}
			}
			return &statement{kind: statementKindOf(query), sql: query, params: params}, nil
		}
	}
	if p.derived == nil {
		return nil, &ResolutionError{
			Owner:  p.method.Owner(),
			Method: p.method.Name(),
			Reason: "no template found and the name is not a derived query",
		}
	}

	spec, err := p.derived.Bind(args)
	if err != nil {
		return nil, err
	}
	d := p.engine.dialect
	st := &statement{spec: spec}
	switch p.derived.Kind {
	case derive.Count, derive.Exists:
		st.kind = kindCount
		st.sql, st.params, err = d.Count(p.class.TableName(), spec)
	case derive.Delete:
		st.kind = kindExec
		st.sql, st.params, err = d.Delete(p.class.TableName(), spec)
	default:
		st.kind = kindQuery
		st.sql, st.params, err = d.SimpleQuery(p.class.TableName(), p.derived.SelectList(), spec)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func statementKindOf(query string) statementKind {
	fields := strings.Fields(strings.TrimLeft(query, "( \t\r\n"))
	if len(fields) == 0 {
		return kindQuery
	}
	switch strings.ToLower(fields[0]) {
	case "select", "with", "show", "values", "explain", "pragma":
		return kindQuery
	}
	return kindExec
}

// templateData exposes arguments by name. A single struct or map argument
// also exposes its fields, without shadowing declared names.
func (p *plan) templateData(args []any) map[string]any {
	data := make(map[string]any, len(args)+1)
	for i, name := range p.names {
		data[name] = args[i]
	}
	if len(args) == 1 {
		for k, v := range expand(args[0]) {
			if _, taken := data[k]; !taken {
				data[k] = v
			}
		}
	}
	if _, taken := data["args"]; !taken {
		data["args"] = args
	}
	return data
}

func expand(arg any) map[string]any {
	if m, ok := arg.(map[string]any); ok {
		return m
	}
	rv := reflect.ValueOf(arg)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || !isRowStruct(rv.Type()) {
		return nil
	}
	class, err := entity.Of(rv.Type())
	if err != nil {
		return nil
	}
	out := map[string]any{}
	for _, f := range class.Fields() {
		fv, ok := entity.FieldByIndex(rv, f.Index)
		if !ok {
			continue
		}
		v := fv.Interface()
		out[f.Name] = v
		out[f.Column] = v
		out[f.GoName] = v
	}
	return out
}

// page runs the count (unless the request carries a total) and the page
// query.
func (p *plan) page(ctx context.Context, st *statement, req *PageRequest) (reflect.Value, error) {
	if st.kind != kindQuery {
		return reflect.Value{}, &ResolutionError{Owner: p.method.Owner(), Method: p.method.Name(), Reason: "paged methods must select rows"}
	}
	req = p.engine.paging.Apply(req)
	d := p.engine.dialect
	query, params := d.StripLimit(st.sql, st.params)

	total := req.TotalElements
	if total <= 0 {
		countSQL, countParams := d.CountQuery(query), params
		if st.spec != nil {
			var err error
			countSQL, countParams, err = d.Count(p.class.TableName(), st.spec)
			if err != nil {
				return reflect.Value{}, err
			}
		}
		n, err := p.count(ctx, countSQL, countParams)
		if err != nil {
			return reflect.Value{}, err
		}
		total = n
	}

	var rows []Row
	if total > 0 && int64(req.Offset()) < total {
		var err error
		pageSQL := d.PaginationQuery(query, req.Offset(), req.Size)
		if rows, err = p.query(ctx, pageSQL, params); err != nil {
			return reflect.Value{}, err
		}
	}

	data, err := mapRows(rows, p.rows, p.sig.elem, p.sig.elemPtr)
	if err != nil {
		return reflect.Value{}, &MappingError{Owner: p.method.Owner(), Method: p.method.Name(), Target: p.sig.result.String(), Err: err}
	}
	if p.sig.shape == shapeList {
		return data, nil
	}
	page := reflect.New(p.sig.result.Elem())
	page.Interface().(pageResult).fill(req, total, data)
	return page, nil
}

func (p *plan) mapResult(rows []Row) (reflect.Value, error) {
	switch p.sig.shape {
	case shapeList:
		return mapRows(rows, p.rows, p.sig.elem, p.sig.elemPtr)
	case shapeScalars:
		return mapScalars(rows, p.sig.result)
	case shapeOne, shapeValue:
		if len(rows) == 0 {
			if p.sig.shape == shapeOne {
				return reflect.Zero(p.sig.result), nil
			}
			return reflect.Value{}, sql.ErrNoRows
		}
		item := reflect.New(p.sig.elem)
		if err := decodeRow(rows[0], p.rows, item.Elem()); err != nil {
			return reflect.Value{}, err
		}
		if p.sig.shape == shapeOne {
			return item, nil
		}
		return item.Elem(), nil
	case shapeScalar:
		if len(rows) == 0 {
			return reflect.Zero(p.sig.result), nil
		}
		return mapScalar(rows[0], p.sig.result)
	}
	return reflect.Value{}, nil
}

// number converts a count or affected row total into the declared result.
func (p *plan) number(n int64) reflect.Value {
	switch p.sig.shape {
	case shapeBool:
		return reflect.ValueOf(n > 0)
	case shapeInt:
		return reflect.ValueOf(n).Convert(p.sig.result)
	}
	return reflect.Value{}
}

func (p *plan) query(ctx context.Context, query string, params []any) ([]Row, error) {
	p.log(query, params)
	rows, err := p.engine.executor.Query(ctx, query, params...)
	if err != nil {
		return nil, p.execError(query, params, err)
	}
	return rows, nil
}

func (p *plan) count(ctx context.Context, query string, params []any) (int64, error) {
	p.log(query, params)
	n, err := p.engine.executor.QueryCount(ctx, query, params...)
	if err != nil {
		return 0, p.execError(query, params, err)
	}
	return n, nil
}

func (p *plan) exec(ctx context.Context, st *statement) (int64, error) {
	p.log(st.sql, st.params)
	n, err := p.engine.executor.Exec(ctx, st.sql, st.params...)
	if err != nil {
		return 0, p.execError(st.sql, st.params, err)
	}
	return n, nil
}

func (p *plan) execError(query string, params []any, err error) error {
	return &ExecutionError{Owner: p.method.Owner(), Method: p.method.Name(), SQL: query, Params: params, Err: err}
}

func (p *plan) log(query string, params []any) {
	p.engine.logger.WithFields(logrus.Fields{
		"dao":    p.method.Owner(),
		"method": p.method.Name(),
		"sql":    query,
		"params": params,
	}).Debug("dao: execute")
}
