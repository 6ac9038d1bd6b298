package dialect

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLite quotes with backticks and pages with "limit size offset start".
// JSON containment goes through json_each.
type SQLite struct{}

// Name returns "sqlite".
func (SQLite) Name() string { return "sqlite" }

// DriverName returns the modernc.org/sqlite driver name.
func (SQLite) DriverName() string { return "sqlite" }

// BindType returns sqlx.QUESTION.
func (SQLite) BindType() int { return sqlx.QUESTION }

// QuoteIdentifier quotes name with backticks. SQLite reads an unknown
// double quoted identifier as a string literal, a backticked one is
// always an identifier.
func (SQLite) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// JSONContains tests whether the JSON array in column holds the bound value.
func (SQLite) JSONContains(column string) string {
	return "exists (select 1 from json_each(" + column + ") where json_each.value = json_extract(?, '$'))"
}

// PageClause returns "limit size offset start".
func (SQLite) PageClause(start, size int) string {
	return "limit " + strconv.Itoa(size) + " offset " + strconv.Itoa(start)
}

// DSN renders a modernc.org/sqlite file name. Params become _pragma style
// query arguments.
func (SQLite) DSN(cfg Config) (string, error) {
	if cfg.Database == "" {
		return "", fmt.Errorf("sqlite dsn: database is required")
	}
	if len(cfg.Params) == 0 {
		return cfg.Database, nil
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(cfg.Database, "?") {
		sep = "&"
	}
	return cfg.Database + sep + q.Encode(), nil
}
