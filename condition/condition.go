package condition

import (
	"fmt"
	"strings"

	"github.com/aarondl/strmangle"
	"github.com/friendsofgo/errors"
)

// Operator identifies the comparison a Condition renders.
type Operator string

// Operators understood by Spec. Or and And group nested Specs.
const (
	Eq           Operator = "eq"
	Like         Operator = "like"
	NotLike      Operator = "notLike"
	Gt           Operator = "gt"
	Gte          Operator = "gte"
	Lt           Operator = "lt"
	Lte          Operator = "lte"
	Not          Operator = "not"
	IsNull       Operator = "isNull"
	IsNotNull    Operator = "isNotNull"
	IsEmpty      Operator = "isEmpty"
	IsNotEmpty   Operator = "isNotEmpty"
	In           Operator = "in"
	NotIn        Operator = "notIn"
	Between      Operator = "between"
	JSONContains Operator = "jsonContains"
	Or           Operator = "or"
	And          Operator = "and"
)

// Syntax is the part of a SQL dialect a Condition needs in order to render.
type Syntax interface {
	QuoteIdentifier(name string) string
	JSONContains(column string) string
}

// Condition is a single predicate of a Spec. Or and And conditions carry
// their operands in Children and have no Field.
type Condition struct {
	Field      string
	Operator   Operator
	Values     []any
	ParamCount int
	Children   []*Spec
}

func (c Condition) clone() Condition {
	out := Condition{
		Field:      c.Field,
		Operator:   c.Operator,
		ParamCount: c.ParamCount,
	}
	if c.Values != nil {
		out.Values = append([]any(nil), c.Values...)
	}
	if c.Children != nil {
		out.Children = make([]*Spec, len(c.Children))
		for i, child := range c.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

var simpleFormats = map[Operator]string{
	Eq:         "%s= ?",
	Like:       "%s like ?",
	NotLike:    "%s not like ?",
	Gt:         "%s> ?",
	Gte:        "%s>= ?",
	Lt:         "%s< ?",
	Lte:        "%s<= ?",
	Not:        "%s<> ?",
	IsNull:     "%s is null",
	IsNotNull:  "%s is not null",
	IsEmpty:    "(%[1]s is null or %[1]s= '')",
	IsNotEmpty: "(%[1]s is not null and %[1]s<> '')",
	Between:    "%s between ? and ?",
}

func (c Condition) render(syn Syntax) (string, []any, error) {
	switch c.Operator {
	case Or, And:
		sep := " or "
		if c.Operator == And {
			sep = " and "
		}
		parts := make([]string, 0, len(c.Children))
		var params []any
		for _, child := range c.Children {
			frag, p, err := child.Render(syn)
			if err != nil {
				return "", nil, err
			}
			if child.Len() > 1 {
				frag = "(" + frag + ")"
			}
			parts = append(parts, frag)
			params = append(params, p...)
		}
		return "(" + strings.Join(parts, sep) + ")", params, nil
	case In, NotIn:
		op := " in("
		if c.Operator == NotIn {
			op = " not in("
		}
		return QuoteField(syn, c.Field) + op + strmangle.Placeholders(false, len(c.Values), 1, 1) + ")", c.Values, nil
	case JSONContains:
		return syn.JSONContains(QuoteField(syn, c.Field)), c.Values, nil
	}

	format, ok := simpleFormats[c.Operator]
	if !ok {
		return "", nil, &ConstructionError{Field: c.Field, Operator: c.Operator, Reason: "unknown operator"}
	}
	return fmt.Sprintf(format, QuoteField(syn, c.Field)), c.Values, nil
}

// QuoteField quotes a column reference. Table qualified names and
// expressions starting with a parenthesis are passed through verbatim.
func QuoteField(syn Syntax, field string) string {
	if strings.Contains(field, ".") || strings.HasPrefix(field, "(") {
		return field
	}
	return syn.QuoteIdentifier(field)
}

// ErrConstruction matches every ConstructionError with errors.Is.
var ErrConstruction = errors.New("query construction failed")

// ConstructionError is recorded when a Spec builder call receives an
// argument that cannot produce a valid predicate.
type ConstructionError struct {
	Field    string
	Operator Operator
	Reason   string
}

// Error describes the rejected predicate.
func (e *ConstructionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("query construction: %s: %s", e.Operator, e.Reason)
	}
	return fmt.Sprintf("query construction: %s on %q: %s", e.Operator, e.Field, e.Reason)
}

// Is reports whether target is ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}
