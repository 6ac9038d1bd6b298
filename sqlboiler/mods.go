package sqlboiler

import (
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/condition"
)

// SpecToQueryMods converts a Spec into SQLBoiler query mods: one WHERE
// holding the rendered filter, then ORDER BY, OFFSET and LIMIT as the Spec
// defines them. syn quotes identifiers, a *dialect.Dialect works.
//
// The rendered filter uses "?" placeholders, which SQLBoiler rebinds for
// drivers with indexed placeholders.
func SpecToQueryMods(syn condition.Syntax, spec *condition.Spec) ([]qm.QueryMod, error) {
	mods, err := FilterMods(syn, spec)
	if err != nil || spec == nil {
		return mods, err
	}

	if order := spec.OrderSQL(syn); order != "" {
		mods = append(mods, qm.OrderBy(order))
	}
	if limit, ok := spec.LimitWindow(); ok {
		if limit.Start > 0 {
			mods = append(mods, qm.Offset(limit.Start))
		}
		mods = append(mods, qm.Limit(limit.Size))
	}
	return mods, nil
}

// FilterMods converts only the filter of a Spec, for count queries.
func FilterMods(syn condition.Syntax, spec *condition.Spec) ([]qm.QueryMod, error) {
	mods := []qm.QueryMod{}
	if spec == nil {
		return mods, nil
	}

	filter, params, err := spec.Render(syn)
	if err != nil {
		return nil, err
	}
	if filter != "" {
		mods = append(mods, rawWhereClause("("+filter+")", params))
	}
	return mods, nil
}

// PageToQueryMods converts a page request into OFFSET and LIMIT mods.
// OFFSET is skipped on the first page.
func PageToQueryMods(req *dao.PageRequest) []qm.QueryMod {
	mods := []qm.QueryMod{}
	if req == nil {
		return mods
	}

	if offset := req.Offset(); offset > 0 {
		mods = append(mods, qm.Offset(offset))
	}
	if req.Size > 0 {
		mods = append(mods, qm.Limit(req.Size))
	}
	return mods
}

// rawWhereClause injects a rendered WHERE clause and its arguments as is.
func rawWhereClause(clause string, args []interface{}) qm.QueryMod {
	return qm.QueryModFunc(func(q *queries.Query) {
		queries.AppendWhere(q, clause, args...)
	})
}
