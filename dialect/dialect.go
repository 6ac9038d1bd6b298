package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aarondl/strmangle"

	"github.com/nrfta/go-dao/condition"
)

// Backend is the database specific part of a Dialect: identifier quoting,
// JSON containment, the page clause and connection strings.
type Backend interface {
	Name() string
	DriverName() string
	// BindType is the sqlx bind type used to rebind "?" placeholders.
	BindType() int
	QuoteIdentifier(name string) string
	JSONContains(column string) string
	PageClause(start, size int) string
	DSN(cfg Config) (string, error)
}

// Config describes a database connection.
type Config struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Database string            `mapstructure:"database"`
	SSLMode  string            `mapstructure:"sslmode"`
	Params   map[string]string `mapstructure:"params"`
}

// Column is a column name and the value to bind for it.
type Column struct {
	Name  string
	Value any
}

// Dialect renders SQL statements for one Backend. It is immutable and
// safe for concurrent use.
type Dialect struct {
	Backend
}

// New wraps a Backend.
func New(b Backend) *Dialect {
	return &Dialect{Backend: b}
}

var (
	mysqlDialect    = New(MySQL{})
	postgresDialect = New(PostgreSQL{})
	sqliteDialect   = New(SQLite{})
)

// Default returns the MySQL dialect.
func Default() *Dialect {
	return mysqlDialect
}

// ByName looks a dialect up by driver or product name.
func ByName(name string) (*Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mysql", "mariadb":
		return mysqlDialect, nil
	case "postgres", "postgresql", "pg", "pgx":
		return postgresDialect, nil
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SecurityTableName quotes a table name, schema qualified names are quoted
// part by part.
func (d *Dialect) SecurityTableName(table string) string {
	table = strings.TrimSpace(table)
	parts := strings.Split(table, ".")
	for i, p := range parts {
		if !identifier.MatchString(p) {
			return table
		}
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// SecurityFields quotes a comma separated select list. Plain and table
// qualified identifiers are quoted, "*" is qualified with table when one is
// given, and anything else (expressions, aliases, sub-selects) is kept as
// written.
func (d *Dialect) SecurityFields(fields, table string) string {
	items := SplitFields(fields)
	if len(items) == 0 {
		items = []string{"*"}
	}
	qualifier := ""
	if table != "" {
		qualifier = d.SecurityTableName(table) + "."
	}
	for i, item := range items {
		switch {
		case item == "*":
			items[i] = qualifier + "*"
		case identifier.MatchString(item):
			items[i] = qualifier + d.QuoteIdentifier(item)
		case isQualified(item):
			items[i] = d.SecurityTableName(item)
		}
	}
	return strings.Join(items, ", ")
}

func isQualified(item string) bool {
	parts := strings.Split(item, ".")
	if len(parts) != 2 {
		return false
	}
	return identifier.MatchString(parts[0]) && identifier.MatchString(parts[1])
}

// SplitFields splits a select list on commas outside parentheses and
// quotes, trimming each item and dropping empty ones.
func SplitFields(fields string) []string {
	var (
		out   []string
		depth int
		quote rune
		start int
	)
	flush := func(end int) {
		if item := strings.TrimSpace(fields[start:end]); item != "" {
			out = append(out, item)
		}
	}
	for i, r := range fields {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			flush(i)
			start = i + 1
		}
	}
	flush(len(fields))
	return out
}

// SimpleQuery renders a select over table filtered by spec, including its
// orderings and page window.
func (d *Dialect) SimpleQuery(table, fields string, spec *condition.Spec) (string, []any, error) {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(d.SecurityFields(fields, ""))
	b.WriteString(" from ")
	b.WriteString(d.SecurityTableName(table))

	params, err := d.writeWhere(&b, spec)
	if err != nil {
		return "", nil, err
	}
	if spec == nil {
		return b.String(), params, nil
	}
	if order := spec.OrderSQL(d); order != "" {
		b.WriteString(" order by ")
		b.WriteString(order)
	}
	if limit, ok := spec.LimitWindow(); ok {
		b.WriteString(" ")
		b.WriteString(d.PageClause(limit.Start, limit.Size))
	}
	return b.String(), params, nil
}

// Count renders a count over table filtered by spec.
func (d *Dialect) Count(table string, spec *condition.Spec) (string, []any, error) {
	var b strings.Builder
	b.WriteString("select count(*) from ")
	b.WriteString(d.SecurityTableName(table))
	params, err := d.writeWhere(&b, spec)
	if err != nil {
		return "", nil, err
	}
	return b.String(), params, nil
}

// Delete renders a delete over table filtered by spec. A nil or empty spec
// is refused so a table is never wiped by accident.
func (d *Dialect) Delete(table string, spec *condition.Spec) (string, []any, error) {
	if spec == nil || (spec.Empty() && spec.Err() == nil) {
		return "", nil, &condition.ConstructionError{Operator: "delete", Reason: "refusing to delete without a filter"}
	}
	var b strings.Builder
	b.WriteString("delete from ")
	b.WriteString(d.SecurityTableName(table))
	params, err := d.writeWhere(&b, spec)
	if err != nil {
		return "", nil, err
	}
	return b.String(), params, nil
}

func (d *Dialect) writeWhere(b *strings.Builder, spec *condition.Spec) ([]any, error) {
	if spec == nil {
		return nil, nil
	}
	filter, params, err := spec.Render(d)
	if err != nil {
		return nil, err
	}
	if filter != "" {
		b.WriteString(" where ")
		b.WriteString(filter)
	}
	return params, nil
}

// FindByID renders a select by primary key with one placeholder.
func (d *Dialect) FindByID(table, fields, pk string) string {
	return "select " + d.SecurityFields(fields, "") +
		" from " + d.SecurityTableName(table) +
		" where " + d.QuoteIdentifier(pk) + "= ?"
}

// DeleteByID renders a delete by primary key with one placeholder.
func (d *Dialect) DeleteByID(table, pk string) string {
	return "delete from " + d.SecurityTableName(table) + " where " + d.QuoteIdentifier(pk) + "= ?"
}

// Exists renders a count by primary key with one placeholder.
func (d *Dialect) Exists(table, pk string) string {
	return "select count(*) from " + d.SecurityTableName(table) + " where " + d.QuoteIdentifier(pk) + "= ?"
}

// Save renders an insert of columns and returns the parameters in column
// order.
func (d *Dialect) Save(table string, columns []Column) (string, []any) {
	names := make([]string, len(columns))
	params := make([]any, len(columns))
	for i, c := range columns {
		names[i] = d.QuoteIdentifier(c.Name)
		params[i] = c.Value
	}
	return "insert into " + d.SecurityTableName(table) +
		"(" + strings.Join(names, ", ") + ") values(" +
		strmangle.Placeholders(false, len(columns), 1, 1) + ")", params
}

// Update renders an update of every column except pk, keyed by pk. The
// primary key value is the last parameter. It fails when columns holds no
// pk value or nothing to set.
func (d *Dialect) Update(table, pk string, columns []Column) (string, []any, error) {
	var (
		sets    []string
		params  []any
		pkValue any
		found   bool
	)
	for _, c := range columns {
		if c.Name == pk {
			pkValue, found = c.Value, true
			continue
		}
		sets = append(sets, d.QuoteIdentifier(c.Name)+"= ?")
		params = append(params, c.Value)
	}
	if !found {
		return "", nil, &condition.ConstructionError{Field: pk, Operator: "update", Reason: "primary key value is missing"}
	}
	if len(sets) == 0 {
		return "", nil, &condition.ConstructionError{Field: pk, Operator: "update", Reason: "no columns to update"}
	}
	params = append(params, pkValue)
	return "update " + d.SecurityTableName(table) +
		" set " + strings.Join(sets, ", ") +
		" where " + d.QuoteIdentifier(pk) + "= ?", params, nil
}

// CountQuery wraps sql in a count over a sub-select.
func (d *Dialect) CountQuery(sql string) string {
	return "select count(*) from (" + trimStatement(sql) + ") count_tmp"
}

var limitKeyword = regexp.MustCompile(`(?i)\blimit\b`)

// PaginationQuery strips a trailing LIMIT from sql and appends the page
// clause. Only text after the last top level closing parenthesis is
// searched, so a LIMIT inside a sub-select is kept.
func (d *Dialect) PaginationQuery(sql string, start, size int) string {
	return stripTrailingLimit(sql) + " " + d.PageClause(start, size)
}

// StripLimit removes a trailing top level LIMIT from sql along with the
// parameters its placeholders bind, so placeholders and parameters stay in
// step. sql must use "?" placeholders.
func (d *Dialect) StripLimit(sql string, params []any) (string, []any) {
	full := trimStatement(sql)
	stripped := stripTrailingLimit(full)
	dropped := strings.Count(full[len(stripped):], "?")
	if dropped == 0 {
		return stripped, params
	}
	keep := len(params) - dropped
	if keep < 0 {
		keep = 0
	}
	return stripped, append([]any(nil), params[:keep]...)
}

func stripTrailingLimit(sql string) string {
	sql = trimStatement(sql)

	depth, lastClose := 0, -1
	for i, r := range sql {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				lastClose = i
			}
		}
	}

	from := lastClose + 1
	matches := limitKeyword.FindAllStringIndex(sql[from:], -1)
	if len(matches) == 0 {
		return sql
	}
	cut := from + matches[len(matches)-1][0]
	return strings.TrimRight(sql[:cut], " \t\r\n")
}

func trimStatement(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}
