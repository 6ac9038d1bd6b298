package dialect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgreSQL quotes with double quotes and pages with "limit size offset start".
type PostgreSQL struct{}

// Name returns "postgres".
func (PostgreSQL) Name() string { return "postgres" }

// DriverName returns the lib/pq driver name.
func (PostgreSQL) DriverName() string { return "postgres" }

// BindType returns sqlx.DOLLAR.
func (PostgreSQL) BindType() int { return sqlx.DOLLAR }

// QuoteIdentifier quotes name with pq.QuoteIdentifier.
func (PostgreSQL) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// JSONContains renders a jsonb containment test.
func (PostgreSQL) JSONContains(column string) string {
	return column + " @> ?::jsonb"
}

// PageClause returns "limit size offset start".
func (PostgreSQL) PageClause(start, size int) string {
	return "limit " + strconv.Itoa(size) + " offset " + strconv.Itoa(start)
}

// DSN renders a lib/pq keyword/value connection string.
func (PostgreSQL) DSN(cfg Config) (string, error) {
	if cfg.Database == "" {
		return "", fmt.Errorf("postgres dsn: database is required")
	}
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	pairs := []string{
		"host=" + pgValue(host),
		"port=" + strconv.Itoa(port),
		"dbname=" + pgValue(cfg.Database),
		"sslmode=" + pgValue(sslmode),
	}
	if cfg.User != "" {
		pairs = append(pairs, "user="+pgValue(cfg.User))
	}
	if cfg.Password != "" {
		pairs = append(pairs, "password="+pgValue(cfg.Password))
	}
	keys := make([]string, 0, len(cfg.Params))
	for k := range cfg.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, k+"="+pgValue(cfg.Params[k]))
	}
	return strings.Join(pairs, " "), nil
}

func pgValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
