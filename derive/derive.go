package derive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/friendsofgo/errors"

	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/dialect"
	"github.com/nrfta/go-dao/entity"
)

// Kind is the statement a derived method runs.
type Kind int

// Statement kinds.
const (
	Find Kind = iota
	Count
	Exists
	Delete
)

// String returns the lower case kind name.
func (k Kind) String() string {
	switch k {
	case Count:
		return "count"
	case Exists:
		return "exists"
	case Delete:
		return "delete"
	}
	return "find"
}

// ErrNotDerivable is returned by Parse when the method name follows none of
// the derived query conventions.
var ErrNotDerivable = errors.New("method name is not a derived query")

// FieldResolutionError is returned when a name segment matches no entity
// field.
type FieldResolutionError struct {
	Method  string
	Entity  string
	Segment string
}

// Error names the method and the fragment that matched no field.
func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("derived query %s: %q matches no field of %s", e.Method, e.Segment, e.Entity)
}

// SelectField pairs a select list item with the entity field it fills.
type SelectField struct {
	DBField     string
	EntityField string
}

// Predicate is one parsed "<Field>[Operator]" segment.
type Predicate struct {
	Field    entity.Field
	Operator condition.Operator
}

// Arity is the number of method arguments the predicate consumes.
func (p Predicate) Arity() int {
	switch p.Operator {
	case condition.Between:
		return 2
	case condition.IsNull, condition.IsNotNull, condition.IsEmpty, condition.IsNotEmpty:
		return 0
	}
	return 1
}

// Order is one parsed OrderBy term.
type Order struct {
	Field entity.Field
	Desc  bool
}

// Query is the parsed, immutable form of a derived method name.
type Query struct {
	Method       string
	Kind         Kind
	Table        string
	SelectFields []SelectField
	Predicates   []Predicate
	Orders       []Order
}

// Option adjusts parsing.
type Option func(*options)

type options struct {
	selectOverride string
}

// WithSelect replaces the default select list. The token {pk} is replaced
// with the table qualified primary key column.
func WithSelect(fields string) Option {
	return func(o *options) {
		o.selectOverride = fields
	}
}

var prefixes = []struct {
	prefix string
	kind   Kind
	empty  bool
}{
	{"FindAllBy", Find, false},
	{"FindBy", Find, false},
	{"CountBy", Count, false},
	{"ExistsBy", Exists, false},
	{"DeleteBy", Delete, false},
	{"FindAll", Find, true},
	{"Count", Count, true},
	{"Find", Find, true},
}

// operators are matched longest keyword first.
var operators = []struct {
	keyword string
	op      condition.Operator
}{
	{"GreaterThanEqual", condition.Gte},
	{"LessThanEqual", condition.Lte},
	{"GreaterThan", condition.Gt},
	{"IsNotEmpty", condition.IsNotEmpty},
	{"IsNotNull", condition.IsNotNull},
	{"LessThan", condition.Lt},
	{"IsEmpty", condition.IsEmpty},
	{"Between", condition.Between},
	{"NotLike", condition.NotLike},
	{"IsNull", condition.IsNull},
	{"NotIn", condition.NotIn},
	{"Like", condition.Like},
	{"Not", condition.Not},
	{"In", condition.In},
}

const (
	andKeyword   = "And"
	orderKeyword = "OrderBy"
)

// Parse turns a method name such as FindByRecommendStatusAndIDOrderByNameDesc
// into a Query against class. Field segments are matched longest first,
// ignoring case and underscores, against column, Go and logical names.
func Parse(method string, class entity.Class, opts ...Option) (*Query, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	rest, kind, ok := stripPrefix(method)
	if !ok {
		return nil, ErrNotDerivable
	}

	q := &Query{Method: method, Kind: kind, Table: class.TableName()}
	p := &parser{method: method, class: class, fields: candidates(class)}

	predicates, orderPart := splitOrder(rest)
	if predicates != "" {
		preds, err := p.predicates(predicates)
		if err != nil {
			return nil, err
		}
		q.Predicates = preds
	}
	if orderPart != "" {
		orders, err := p.orders(orderPart)
		if err != nil {
			return nil, err
		}
		q.Orders = orders
	}

	q.SelectFields = selectFields(class, o.selectOverride)
	return q, nil
}

func stripPrefix(method string) (string, Kind, bool) {
	for _, p := range prefixes {
		if !strings.HasPrefix(method, p.prefix) {
			continue
		}
		rest := method[len(p.prefix):]
		if p.empty {
			if rest == "" || strings.HasPrefix(rest, orderKeyword) {
				return rest, p.kind, true
			}
			continue
		}
		if rest == "" {
			return "", 0, false
		}
		return rest, p.kind, true
	}
	return "", 0, false
}

// splitOrder separates "<predicates>OrderBy<orders>". Leading OrderBy means
// there are no predicates.
func splitOrder(rest string) (string, string) {
	if strings.HasPrefix(rest, orderKeyword) {
		return "", rest[len(orderKeyword):]
	}
	i := strings.LastIndex(rest, orderKeyword)
	if i <= 0 {
		return rest, ""
	}
	return rest[:i], rest[i+len(orderKeyword):]
}

type candidate struct {
	key   string
	field entity.Field
}

func candidates(class entity.Class) []candidate {
	var out []candidate
	for _, f := range class.Fields() {
		seen := map[string]bool{}
		for _, name := range []string{f.GoName, f.Column, f.Name} {
			k := entity.Key(name)
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, candidate{key: k, field: f})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].key) > len(out[j].key)
	})
	return out
}

type parser struct {
	method string
	class  entity.Class
	fields []candidate
}

func (p *parser) predicates(s string) ([]Predicate, error) {
	var out []Predicate
	for {
		field, op, rest, ok := p.predicate(s)
		if !ok {
			return nil, p.unresolved(s)
		}
		out = append(out, Predicate{Field: field, Operator: op})
		if rest == "" {
			return out, nil
		}
		s = rest[len(andKeyword):]
		if s == "" {
			return nil, p.unresolved(rest)
		}
	}
}

// predicate matches one "<Field>[Operator]" segment at the start of s. The
// remainder is empty or starts with And.
func (p *parser) predicate(s string) (entity.Field, condition.Operator, string, bool) {
	for _, c := range p.fields {
		n, ok := matchPrefix(s, c.key)
		if !ok {
			continue
		}
		tail := s[n:]
		if atBoundary(tail) {
			return c.field, condition.Eq, tail, true
		}
		for _, o := range operators {
			if strings.HasPrefix(tail, o.keyword) && atBoundary(tail[len(o.keyword):]) {
				return c.field, o.op, tail[len(o.keyword):], true
			}
		}
	}
	return entity.Field{}, "", "", false
}

func atBoundary(s string) bool {
	return s == "" || (strings.HasPrefix(s, andKeyword) && len(s) > len(andKeyword) && isUpper(s[len(andKeyword)]))
}

func (p *parser) orders(s string) ([]Order, error) {
	var out []Order
	for s != "" {
		matched := false
		for _, c := range p.fields {
			n, ok := matchPrefix(s, c.key)
			if !ok {
				continue
			}
			tail := s[n:]
			desc := false
			switch {
			case strings.HasPrefix(tail, "Desc") && orderBoundary(tail[4:]):
				desc, tail = true, tail[4:]
			case strings.HasPrefix(tail, "Asc") && orderBoundary(tail[3:]):
				tail = tail[3:]
			case !orderBoundary(tail):
				continue
			}
			out = append(out, Order{Field: c.field, Desc: desc})
			if atBoundary(tail) {
				tail = strings.TrimPrefix(tail, andKeyword)
			}
			s = tail
			matched = true
			break
		}
		if !matched {
			return nil, p.unresolved(s)
		}
	}
	return out, nil
}

func orderBoundary(s string) bool {
	return s == "" || isUpper(s[0])
}

// matchPrefix reports whether s starts with key when underscores are
// dropped and case is ignored, returning the number of bytes consumed. The
// match must end on a word boundary.
func matchPrefix(s, key string) (int, bool) {
	i, j := 0, 0
	for i < len(s) && j < len(key) {
		if s[i] == '_' {
			i++
			continue
		}
		if lower(s[i]) != key[j] {
			return 0, false
		}
		i++
		j++
	}
	if j < len(key) {
		return 0, false
	}
	if i < len(s) && !isUpper(s[i]) && s[i] != '_' {
		return 0, false
	}
	return i, true
}

func (p *parser) unresolved(segment string) error {
	if i := strings.Index(segment, andKeyword); i > 0 {
		segment = segment[:i]
	}
	return &FieldResolutionError{Method: p.method, Entity: p.class.Name(), Segment: segment}
}

func selectFields(class entity.Class, override string) []SelectField {
	if override == "" {
		fields := entity.Persistent(class)
		out := make([]SelectField, len(fields))
		for i, f := range fields {
			out[i] = SelectField{DBField: f.Column, EntityField: f.Name}
		}
		return out
	}

	if pk, ok := class.PrimaryKey(); ok {
		override = strings.ReplaceAll(override, "{pk}", class.TableName()+"."+pk.Column)
	}
	items := dialect.SplitFields(override)
	out := make([]SelectField, len(items))
	for i, item := range items {
		out[i] = SelectField{DBField: item, EntityField: entityField(class, item)}
	}
	return out
}

// entityField picks the entity field an item fills: the alias when there is
// one, else the unqualified column.
func entityField(class entity.Class, item string) string {
	name := item
	if i := strings.LastIndex(strings.ToLower(item), " as "); i >= 0 {
		name = strings.TrimSpace(item[i+4:])
	} else if i := strings.LastIndex(item, "."); i >= 0 && !strings.ContainsAny(item, "( ") {
		name = item[i+1:]
	}
	name = strings.Trim(name, "`\"")
	if f, ok := class.Lookup(name); ok {
		return f.Name
	}
	return name
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func lower(b byte) byte {
	if isUpper(b) {
		return b + 'a' - 'A'
	}
	return b
}
