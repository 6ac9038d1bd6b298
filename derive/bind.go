package derive

import (
	"fmt"
	"strings"

	"github.com/nrfta/go-dao/condition"
)

// ParamCount is the number of arguments Bind expects.
func (q *Query) ParamCount() int {
	n := 0
	for _, p := range q.Predicates {
		n += p.Arity()
	}
	return n
}

// Columns returns the predicate columns in name order.
func (q *Query) Columns() []string {
	out := make([]string, len(q.Predicates))
	for i, p := range q.Predicates {
		out[i] = p.Field.Column
	}
	return out
}

// SelectList joins the select fields for use as a select list.
func (q *Query) SelectList() string {
	items := make([]string, len(q.SelectFields))
	for i, f := range q.SelectFields {
		items[i] = f.DBField
	}
	return strings.Join(items, ",")
}

// Bind builds the condition Spec for one call. args are consumed in
// predicate order, Between taking two and null checks none.
func (q *Query) Bind(args []any) (*condition.Spec, error) {
	if want := q.ParamCount(); len(args) != want {
		return nil, fmt.Errorf("derived query %s: expects %d arguments, got %d", q.Method, want, len(args))
	}

	spec := condition.New()
	i := 0
	for _, p := range q.Predicates {
		col := p.Field.Column
		switch p.Operator {
		case condition.Eq:
			spec.Eq(col, args[i])
		case condition.Like:
			spec.Like(col, args[i])
		case condition.NotLike:
			spec.NotLike(col, args[i])
		case condition.Gt:
			spec.Gt(col, args[i])
		case condition.Gte:
			spec.Gte(col, args[i])
		case condition.Lt:
			spec.Lt(col, args[i])
		case condition.Lte:
			spec.Lte(col, args[i])
		case condition.Not:
			spec.Not(col, args[i])
		case condition.In:
			spec.In(col, args[i])
		case condition.NotIn:
			spec.NotIn(col, args[i])
		case condition.Between:
			spec.Between(col, args[i], args[i+1])
		case condition.IsNull:
			spec.IsNull(col)
		case condition.IsNotNull:
			spec.IsNotNull(col)
		case condition.IsEmpty:
			spec.IsEmpty(col)
		case condition.IsNotEmpty:
			spec.IsNotEmpty(col)
		}
		i += p.Arity()
	}
	for _, o := range q.Orders {
		if o.Desc {
			spec.Desc(o.Field.Column)
		} else {
			spec.Asc(o.Field.Column)
		}
	}
	if err := spec.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}
