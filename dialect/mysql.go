package dialect

import (
	"fmt"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// MySQL quotes with backticks and pages with "limit start,size".
type MySQL struct{}

// Name returns "mysql".
func (MySQL) Name() string { return "mysql" }

// DriverName returns the go-sql-driver/mysql driver name.
func (MySQL) DriverName() string { return "mysql" }

// BindType returns sqlx.QUESTION.
func (MySQL) BindType() int { return sqlx.QUESTION }

// QuoteIdentifier quotes name with backticks.
func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// JSONContains renders JSON_CONTAINS with the bound value as candidate.
func (MySQL) JSONContains(column string) string {
	return "JSON_CONTAINS(" + column + ", ?)"
}

// PageClause returns "limit start,size".
func (MySQL) PageClause(start, size int) string {
	return "limit " + strconv.Itoa(start) + "," + strconv.Itoa(size)
}

// DSN renders a go-sql-driver/mysql data source name with parseTime on.
func (MySQL) DSN(cfg Config) (string, error) {
	if cfg.Database == "" {
		return "", fmt.Errorf("mysql dsn: database is required")
	}
	c := mysqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.DBName = cfg.Database
	c.ParseTime = true
	if cfg.Host != "" {
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		c.Net = "tcp"
		c.Addr = cfg.Host + ":" + strconv.Itoa(port)
	}
	if len(cfg.Params) > 0 {
		c.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			c.Params[k] = v
		}
	}
	return c.FormatDSN(), nil
}
