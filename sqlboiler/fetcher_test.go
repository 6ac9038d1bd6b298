package sqlboiler_test

import (
	"context"
	"errors"

	"github.com/aarondl/sqlboiler/v4/queries/qm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/dialect"
	"github.com/nrfta/go-dao/sqlboiler"
)

type User struct {
	ID   string
	Name string
}

var _ = Describe("Fetcher", func() {
	var (
		ctx        context.Context
		queryMods  [][]qm.QueryMod
		countMods  [][]qm.QueryMod
		total      int64
		queryError error
		fetcher    *sqlboiler.Fetcher[*User]
	)

	BeforeEach(func() {
		ctx = context.Background()
		queryMods, countMods = nil, nil
		total, queryError = 42, nil

		fetcher = sqlboiler.NewFetcher(
			func(ctx context.Context, mods ...qm.QueryMod) ([]*User, error) {
				queryMods = append(queryMods, mods)
				return []*User{{ID: "1", Name: "Alice"}, {ID: "2", Name: "Bob"}}, queryError
			},
			func(ctx context.Context, mods ...qm.QueryMod) (int64, error) {
				countMods = append(countMods, mods)
				return total, nil
			},
			dialect.New(dialect.PostgreSQL{}),
			sqlboiler.WithPageConfig(dao.NewPageConfig().WithMaxSize(25)),
		)
	})

	It("finds with the full spec", func() {
		users, err := fetcher.Find(ctx, condition.New().Eq("name", "Alice").Asc("id"))

		Expect(err).ToNot(HaveOccurred())
		Expect(users).To(HaveLen(2))
		Expect(queryMods).To(HaveLen(1))
		Expect(queryMods[0]).To(HaveLen(2))
	})

	It("counts with the filter only", func() {
		n, err := fetcher.Count(ctx, condition.New().Eq("name", "Alice").Asc("id"))

		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(int64(42)))
		Expect(countMods[0]).To(HaveLen(1))
		Expect(modTypeName(countMods[0][0])).To(whereModMatcher())
	})

	Describe("Page", func() {
		It("counts, then fetches the window", func() {
			page, err := fetcher.Page(ctx, condition.New().Desc("created_at"), dao.NewPageRequest(2, 10))

			Expect(err).ToNot(HaveOccurred())
			Expect(page.TotalElements).To(Equal(int64(42)))
			Expect(page.Index).To(Equal(2))
			Expect(page.Data).To(HaveLen(2))
			Expect(page.HasNext()).To(BeTrue())

			Expect(countMods).To(HaveLen(1))
			Expect(countMods[0]).To(BeEmpty())

			Expect(queryMods).To(HaveLen(1))
			Expect(queryMods[0]).To(HaveLen(3))
			Expect(modTypeName(queryMods[0][0])).To(Equal("qm.orderByQueryMod"))
			Expect(modTypeName(queryMods[0][1])).To(Equal("qm.offsetQueryMod"))
			Expect(modTypeName(queryMods[0][2])).To(Equal("qm.limitQueryMod"))
		})

		It("skips the count when the total is known", func() {
			_, err := fetcher.Page(ctx, nil, dao.NewPageRequest(1, 10).WithTotal(42))

			Expect(err).ToNot(HaveOccurred())
			Expect(countMods).To(BeEmpty())
			Expect(queryMods).To(HaveLen(1))
		})

		It("skips the query past the last row", func() {
			page, err := fetcher.Page(ctx, nil, dao.NewPageRequest(9, 10))

			Expect(err).ToNot(HaveOccurred())
			Expect(page.Data).To(BeEmpty())
			Expect(queryMods).To(BeEmpty())
		})

		It("caps the page size", func() {
			page, err := fetcher.Page(ctx, nil, dao.NewPageRequest(1, 500))

			Expect(err).ToNot(HaveOccurred())
			Expect(page.Size).To(Equal(25))
		})

		It("does not change the caller's spec", func() {
			spec := condition.New().Eq("name", "Alice")
			_, err := fetcher.Page(ctx, spec, dao.NewPageRequest(2, 10))

			Expect(err).ToNot(HaveOccurred())
			_, hasLimit := spec.LimitWindow()
			Expect(hasLimit).To(BeFalse())
		})

		It("propagates query errors", func() {
			queryError = errors.New("database connection failed")

			_, err := fetcher.Page(ctx, nil, dao.NewPageRequest(1, 10))
			Expect(err).To(MatchError("database connection failed"))
		})
	})
})
