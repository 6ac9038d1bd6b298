// Package dao turns DAO structs into working data access objects. Each
// exported func field of a DAO struct is bound to either a SQL template
// from a Registry or a query derived from its name, and calls run through
// an Executor against a Dialect.
//
// Example:
//
//	type UserDao struct {
//	    dao.Base[User]
//
//	    FindByName             func(ctx context.Context, name string) ([]User, error)
//	    FindActive             func(ctx context.Context, req *dao.PageRequest) (*dao.Pageable[User], error)
//	    CountByStatusIn        func(ctx context.Context, status []int) (int64, error)
//	    FindByAgeOrderByIdDesc func(age int) (*User, error) `dao:"select=id,name"`
//	}
//
//	users, err := dao.CreateProxy[UserDao](engine)
package dao

import (
	"context"
)

// Row is one result row keyed by column label.
type Row map[string]any

// Executor runs SQL with "?" placeholders. Implementations rebind to
// their driver's placeholder style.
type Executor interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	// Exec returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// QueryCount returns the single integer the query selects.
	QueryCount(ctx context.Context, query string, args ...any) (int64, error)
}
