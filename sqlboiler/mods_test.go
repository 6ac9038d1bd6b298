package sqlboiler_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/dialect"
	"github.com/nrfta/go-dao/sqlboiler"
)

var _ = Describe("PageToQueryMods", func() {
	It("returns empty mods for a nil request", func() {
		Expect(sqlboiler.PageToQueryMods(nil)).To(HaveLen(0))
	})

	It("skips OFFSET on the first page", func() {
		mods := sqlboiler.PageToQueryMods(dao.NewPageRequest(1, 10))

		Expect(mods).To(HaveLen(1))
		Expect(modTypeName(mods[0])).To(Equal("qm.limitQueryMod"))
	})

	It("adds OFFSET then LIMIT on later pages", func() {
		mods := sqlboiler.PageToQueryMods(dao.NewPageRequest(3, 10))

		Expect(mods).To(HaveLen(2))
		Expect(modTypeName(mods[0])).To(Equal("qm.offsetQueryMod"))
		Expect(modTypeName(mods[1])).To(Equal("qm.limitQueryMod"))
	})

	It("honours an explicit start", func() {
		req := dao.PageRequestAfter(dao.EncodeOffsetCursor(15), 5)
		mods := sqlboiler.PageToQueryMods(req)

		Expect(mods).To(HaveLen(2))
		Expect(modTypeName(mods[0])).To(Equal("qm.offsetQueryMod"))
	})
})

var _ = Describe("SpecToQueryMods", func() {
	pg := dialect.New(dialect.PostgreSQL{})

	It("returns empty mods for a nil or empty spec", func() {
		mods, err := sqlboiler.SpecToQueryMods(pg, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(0))

		mods, err = sqlboiler.SpecToQueryMods(pg, condition.New())
		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(0))
	})

	It("adds a single WHERE for the whole filter", func() {
		spec := condition.New().Eq("status", "active").Gt("age", 18)
		mods, err := sqlboiler.SpecToQueryMods(pg, spec)

		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(1))
		Expect(modTypeName(mods[0])).To(whereModMatcher())
	})

	It("combines WHERE, ORDER BY, OFFSET and LIMIT", func() {
		spec := condition.New().Eq("status", "active").Desc("created_at").Limit(20, 10)
		mods, err := sqlboiler.SpecToQueryMods(pg, spec)

		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(4))
		Expect(modTypeName(mods[0])).To(whereModMatcher())
		Expect(modTypeName(mods[1])).To(Equal("qm.orderByQueryMod"))
		Expect(modTypeName(mods[2])).To(Equal("qm.offsetQueryMod"))
		Expect(modTypeName(mods[3])).To(Equal("qm.limitQueryMod"))
	})

	It("skips OFFSET for a window starting at zero", func() {
		mods, err := sqlboiler.SpecToQueryMods(pg, condition.New().Limit(0, 10))

		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(1))
		Expect(modTypeName(mods[0])).To(Equal("qm.limitQueryMod"))
	})

	It("surfaces construction errors", func() {
		_, err := sqlboiler.SpecToQueryMods(pg, condition.New().Eq("status", nil))
		Expect(err).To(MatchError(condition.ErrConstruction))
	})

	It("leaves ordering out of filter mods", func() {
		spec := condition.New().Eq("status", "active").Asc("id").Limit(0, 5)
		mods, err := sqlboiler.FilterMods(pg, spec)

		Expect(err).ToNot(HaveOccurred())
		Expect(mods).To(HaveLen(1))
	})
})
