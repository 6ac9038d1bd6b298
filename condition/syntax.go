package condition

import "strings"

// Backtick is the MySQL style Syntax used by FilterSQL.
var Backtick Syntax = backtick{}

type backtick struct{}

func (backtick) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (backtick) JSONContains(column string) string {
	return "JSON_CONTAINS(" + column + ", ?)"
}
