package condition

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Direction is the sort direction of an Order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is one ORDER BY term.
type Order struct {
	Field     string
	Direction Direction
}

// Limit is a page window, Start rows skipped and at most Size returned.
type Limit struct {
	Start int
	Size  int
}

// Spec accumulates conditions, orderings and an optional limit for a
// single query. Builder methods return the receiver so calls can be
// chained. The first invalid call is recorded and reported by Err and
// Render; later calls on a failed Spec are ignored.
//
// A Spec is not safe for concurrent mutation. Clone it before sharing.
type Spec struct {
	conditions []Condition
	orders     []Order
	limit      *Limit
	err        error
}

// New returns an empty Spec.
func New() *Spec {
	return &Spec{}
}

// Eq adds "field = ?". Nil and blank string values are rejected.
func (s *Spec) Eq(field string, value any) *Spec {
	if isBlank(value) {
		return s.fail(field, Eq, "value must not be nil or blank")
	}
	return s.add(field, Eq, value)
}

// Like adds "field like ?". The value is used as given, wildcards included.
func (s *Spec) Like(field string, value any) *Spec {
	if isBlank(value) {
		return s.fail(field, Like, "value must not be nil or blank")
	}
	return s.add(field, Like, value)
}

// NotLike adds "field not like ?".
func (s *Spec) NotLike(field string, value any) *Spec {
	if isBlank(value) {
		return s.fail(field, NotLike, "value must not be nil or blank")
	}
	return s.add(field, NotLike, value)
}

// Gt adds "field > ?".
func (s *Spec) Gt(field string, value any) *Spec { return s.compare(field, Gt, value) }

// Gte adds "field >= ?".
func (s *Spec) Gte(field string, value any) *Spec { return s.compare(field, Gte, value) }

// Lt adds "field < ?".
func (s *Spec) Lt(field string, value any) *Spec { return s.compare(field, Lt, value) }

// Lte adds "field <= ?".
func (s *Spec) Lte(field string, value any) *Spec { return s.compare(field, Lte, value) }

// Not adds "field <> ?".
func (s *Spec) Not(field string, value any) *Spec { return s.compare(field, Not, value) }

// IsNull adds "field is null".
func (s *Spec) IsNull(field string) *Spec { return s.add(field, IsNull) }

// IsNotNull adds "field is not null".
func (s *Spec) IsNotNull(field string) *Spec { return s.add(field, IsNotNull) }

// IsEmpty matches null or empty string values.
func (s *Spec) IsEmpty(field string) *Spec { return s.add(field, IsEmpty) }

// IsNotEmpty matches values that are neither null nor empty.
func (s *Spec) IsNotEmpty(field string) *Spec { return s.add(field, IsNotEmpty) }

// In adds "field in(?,...)". values may be a slice or array, a scalar is
// treated as a single element list. Empty lists are rejected.
func (s *Spec) In(field string, values any) *Spec {
	list := flatten(values)
	if len(list) == 0 {
		return s.fail(field, In, "value list must not be empty")
	}
	return s.add(field, In, list...)
}

// NotIn is the negation of In.
func (s *Spec) NotIn(field string, values any) *Spec {
	list := flatten(values)
	if len(list) == 0 {
		return s.fail(field, NotIn, "value list must not be empty")
	}
	return s.add(field, NotIn, list...)
}

// Between adds "field between ? and ?".
func (s *Spec) Between(field string, low, high any) *Spec {
	if isNil(low) || isNil(high) {
		return s.fail(field, Between, "bounds must not be nil")
	}
	return s.add(field, Between, low, high)
}

// JSONContains adds a JSON containment test. The value is JSON encoded
// before binding.
func (s *Spec) JSONContains(field string, value any) *Spec {
	if isNil(value) {
		return s.fail(field, JSONContains, "value must not be nil")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return s.fail(field, JSONContains, err.Error())
	}
	return s.add(field, JSONContains, string(raw))
}

// Or adds a disjunction of the given specs, each rendered as one operand.
func (s *Spec) Or(specs ...*Spec) *Spec {
	return s.group(Or, specs)
}

// And adds a parenthesized conjunction of the given specs.
func (s *Spec) And(specs ...*Spec) *Spec {
	return s.group(And, specs)
}

// Asc appends ascending orderings.
func (s *Spec) Asc(fields ...string) *Spec {
	return s.Sort(Asc, fields...)
}

// Desc appends descending orderings.
func (s *Spec) Desc(fields ...string) *Spec {
	return s.Sort(Desc, fields...)
}

// Sort appends an ordering on each field in the given direction.
func (s *Spec) Sort(dir Direction, fields ...string) *Spec {
	if s.err != nil {
		return s
	}
	if dir != Asc && dir != Desc {
		return s.fail("", "sort", "direction must be asc or desc")
	}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return s.fail("", "sort", "field must not be blank")
		}
		s.orders = append(s.orders, Order{Field: f, Direction: dir})
	}
	return s
}

// Limit sets the page window. A later call replaces an earlier one.
func (s *Spec) Limit(start, size int) *Spec {
	if s.err != nil {
		return s
	}
	if start < 0 || size <= 0 {
		return s.fail("", "limit", "start must be >= 0 and size > 0")
	}
	s.limit = &Limit{Start: start, Size: size}
	return s
}

// Err returns the first construction error recorded on the Spec.
func (s *Spec) Err() error {
	return s.err
}

// Len returns the number of top level conditions.
func (s *Spec) Len() int {
	return len(s.conditions)
}

// Empty reports whether the Spec has no conditions.
func (s *Spec) Empty() bool {
	return len(s.conditions) == 0
}

// Conditions returns a copy of the top level conditions.
func (s *Spec) Conditions() []Condition {
	out := make([]Condition, len(s.conditions))
	for i, c := range s.conditions {
		out[i] = c.clone()
	}
	return out
}

// Orders returns a copy of the orderings.
func (s *Spec) Orders() []Order {
	return append([]Order(nil), s.orders...)
}

// LimitWindow returns the page window, if one was set.
func (s *Spec) LimitWindow() (Limit, bool) {
	if s.limit == nil {
		return Limit{}, false
	}
	return *s.limit, true
}

// ParamCount returns the number of placeholders the filter renders.
func (s *Spec) ParamCount() int {
	n := 0
	for _, c := range s.conditions {
		n += c.ParamCount
	}
	return n
}

// Clone returns a deep copy. Mutating the clone never affects s.
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	out := &Spec{
		orders: append([]Order(nil), s.orders...),
		err:    s.err,
	}
	if s.conditions != nil {
		out.conditions = make([]Condition, len(s.conditions))
		for i, c := range s.conditions {
			out.conditions[i] = c.clone()
		}
	}
	if s.limit != nil {
		l := *s.limit
		out.limit = &l
	}
	return out
}

// Render renders the filter fragment joined with " and ", and the
// parameters in placeholder order. It fails when the Spec recorded a
// construction error or when parameters and placeholders disagree.
func (s *Spec) Render(syn Syntax) (string, []any, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if len(s.conditions) == 0 {
		return "", nil, nil
	}

	parts := make([]string, 0, len(s.conditions))
	params := make([]any, 0, s.ParamCount())
	for _, c := range s.conditions {
		frag, p, err := c.render(syn)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, frag)
		params = append(params, p...)
	}
	if want := s.ParamCount(); want != len(params) {
		return "", nil, &ConstructionError{
			Operator: And,
			Reason:   "placeholder count does not match parameter count",
		}
	}
	return strings.Join(parts, " and "), params, nil
}

// OrderSQL renders the ORDER BY terms without the keyword.
func (s *Spec) OrderSQL(syn Syntax) string {
	if len(s.orders) == 0 {
		return ""
	}
	parts := make([]string, len(s.orders))
	for i, o := range s.orders {
		parts[i] = QuoteField(syn, o.Field) + " " + string(o.Direction)
	}
	return strings.Join(parts, ", ")
}

// FilterSQL renders the filter with backtick quoting. It returns an empty
// string when the Spec is invalid, use Render to see the error.
func (s *Spec) FilterSQL() string {
	sql, _, err := s.Render(Backtick)
	if err != nil {
		return ""
	}
	return sql
}

// FilterParams returns the parameters in placeholder order.
func (s *Spec) FilterParams() []any {
	_, params, err := s.Render(Backtick)
	if err != nil {
		return nil
	}
	return params
}

func (s *Spec) compare(field string, op Operator, value any) *Spec {
	if isNil(value) {
		return s.fail(field, op, "value must not be nil")
	}
	return s.add(field, op, value)
}

func (s *Spec) add(field string, op Operator, values ...any) *Spec {
	if s.err != nil {
		return s
	}
	if strings.TrimSpace(field) == "" {
		return s.fail(field, op, "field must not be blank")
	}
	s.conditions = append(s.conditions, Condition{
		Field:      field,
		Operator:   op,
		Values:     values,
		ParamCount: len(values),
	})
	return s
}

func (s *Spec) group(op Operator, specs []*Spec) *Spec {
	if s.err != nil {
		return s
	}
	children := make([]*Spec, 0, len(specs))
	count := 0
	for _, child := range specs {
		if child == nil {
			continue
		}
		if child.err != nil {
			s.err = child.err
			return s
		}
		if child.Empty() {
			continue
		}
		c := child.Clone()
		children = append(children, c)
		count += c.ParamCount()
	}
	if len(children) < 2 {
		return s.fail("", op, "at least two non empty operands are required")
	}
	s.conditions = append(s.conditions, Condition{
		Operator:   op,
		Children:   children,
		ParamCount: count,
	})
	return s
}

func (s *Spec) fail(field string, op Operator, reason string) *Spec {
	if s.err == nil {
		s.err = &ConstructionError{Field: field, Operator: op, Reason: reason}
	}
	return s
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isBlank(v any) bool {
	if isNil(v) {
		return true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) == ""
	case *string:
		return strings.TrimSpace(*t) == ""
	}
	return false
}

func flatten(values any) []any {
	if isNil(values) {
		return nil
	}
	if _, ok := values.([]byte); ok {
		return []any{values}
	}
	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{values}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
