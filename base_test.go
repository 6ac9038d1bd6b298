package dao_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/go-dao"
	"github.com/nrfta/go-dao/condition"
	"github.com/nrfta/go-dao/dialect"
)

type Token struct {
	Key   string `dao:"pk,uuid"`
	Owner string
}

func (Token) TableName() string { return "auth_tokens" }

type TokenDao struct {
	dao.Base[Token]
}

type PlainDao struct {
	dao.Base[User]
}

var _ = Describe("Base", func() {
	var (
		ctx   context.Context
		exec  *recordingExecutor
		users *PlainDao
	)

	BeforeEach(func() {
		ctx = context.Background()
		exec = &recordingExecutor{}

		var err error
		users, err = dao.CreateProxy[PlainDao](dao.NewEngine(exec))
		Expect(err).ToNot(HaveOccurred())
	})

	It("exposes the table and primary key", func() {
		Expect(users.TableName()).To(Equal("user"))
		Expect(users.PrimaryKey()).To(Equal("id"))
		Expect(users.Class().Name()).To(Equal("User"))
	})

	It("finds by primary key", func() {
		exec.rows = userRows(User{ID: 3, Name: "cy"})

		u, err := users.FindByID(ctx, 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(u.Name).To(Equal("cy"))
		Expect(exec.Last()).To(Equal(statement{
			Kind: "query",
			SQL:  "select `id`, `name`, `age`, `status`, `email` from `user` where `id`= ?",
			Args: []any{3},
		}))
	})

	It("returns nil when the primary key is unknown", func() {
		u, err := users.FindByID(ctx, 404)
		Expect(err).ToNot(HaveOccurred())
		Expect(u).To(BeNil())
	})

	It("checks existence", func() {
		exec.count = 1
		ok, err := users.Exists(ctx, 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(exec.Last().SQL).To(Equal("select count(*) from `user` where `id`= ?"))
	})

	It("saves every persistent column", func() {
		exec.affected = 1

		n, err := users.Save(ctx, &User{ID: 9, Name: "ed", Age: 33})
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
		Expect(exec.Last().SQL).To(Equal("insert into `user`(`id`, `name`, `age`, `status`, `email`) values(?,?,?,?,?)"))
		Expect(exec.Last().Args[:4]).To(Equal([]any{int64(9), "ed", 33, 0}))
	})

	It("leaves a zero primary key to the database", func() {
		_, err := users.Save(ctx, &User{Name: "fay"})
		Expect(err).ToNot(HaveOccurred())
		Expect(exec.Last().SQL).To(Equal("insert into `user`(`name`, `age`, `status`, `email`) values(?,?,?,?)"))
	})

	It("fills uuid keys before saving", func() {
		tokens, err := dao.CreateProxy[TokenDao](dao.NewEngine(exec))
		Expect(err).ToNot(HaveOccurred())

		t := &Token{Owner: "ann"}
		_, err = tokens.Save(ctx, t)
		Expect(err).ToNot(HaveOccurred())

		_, err = uuid.Parse(t.Key)
		Expect(err).ToNot(HaveOccurred())
		Expect(exec.Last().SQL).To(Equal("insert into `auth_tokens`(`key`, `owner`) values(?,?)"))
		Expect(exec.Last().Args).To(Equal([]any{t.Key, "ann"}))
	})

	It("updates by primary key", func() {
		_, err := users.Update(ctx, &User{ID: 9, Name: "ed", Age: 34})
		Expect(err).ToNot(HaveOccurred())
		Expect(exec.Last().SQL).To(Equal("update `user` set `name`= ?, `age`= ?, `status`= ?, `email`= ? where `id`= ?"))
		Expect(exec.Last().Args[4]).To(Equal(int64(9)))
	})

	It("refuses to save nil", func() {
		_, err := users.Save(ctx, nil)
		Expect(err).To(HaveOccurred())
		Expect(exec.Statements()).To(BeEmpty())
	})

	It("deletes by primary key", func() {
		exec.affected = 1
		n, err := users.DeleteByID(ctx, 9)
		Expect(err).ToNot(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
		Expect(exec.Last().SQL).To(Equal("delete from `user` where `id`= ?"))
	})

	Describe("with a Spec", func() {
		It("finds matching rows in order", func() {
			exec.rows = userRows(User{ID: 1, Age: 20}, User{ID: 2, Age: 30})

			spec := condition.New().Gte("age", 18).Or(
				condition.New().Eq("status", 1),
				condition.New().IsNull("email"),
			).Desc("age")
			result, err := users.FindBySpec(ctx, spec)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(HaveLen(2))
			Expect(exec.Last().SQL).To(Equal(
				"select `id`, `name`, `age`, `status`, `email` from `user` " +
					"where `age`>= ? and (`status`= ? or `email` is null) order by `age` desc",
			))
			Expect(exec.Last().Args).To(Equal([]any{18, 1}))
		})

		It("counts matching rows", func() {
			exec.count = 12
			n, err := users.CountBySpec(ctx, condition.New().Like("name", "a%"))
			Expect(err).ToNot(HaveOccurred())
			Expect(n).To(Equal(int64(12)))
			Expect(exec.Last().SQL).To(Equal("select count(*) from `user` where `name` like ?"))
		})

		It("refuses to delete without a filter", func() {
			_, err := users.DeleteBySpec(ctx, condition.New())

			var qerr *dao.QueryConstructionError
			Expect(errors.As(err, &qerr)).To(BeTrue())
			Expect(exec.Statements()).To(BeEmpty())
		})

		It("surfaces construction errors before executing", func() {
			_, err := users.FindBySpec(ctx, condition.New().Eq("name", nil))
			Expect(err).To(HaveOccurred())
			Expect(exec.Statements()).To(BeEmpty())
		})

		It("pages", func() {
			exec.count = 21
			exec.rows = userRows(User{ID: 21})

			spec := condition.New().Gt("age", 1).Asc("id")
			page, err := users.PageBySpec(ctx, spec, dao.NewPageRequest(3, 10))
			Expect(err).ToNot(HaveOccurred())
			Expect(page.TotalElements).To(Equal(int64(21)))
			Expect(page.Data).To(HaveLen(1))
			Expect(page.HasNext()).To(BeFalse())

			stmts := exec.Statements()
			Expect(stmts).To(HaveLen(2))
			Expect(stmts[0].SQL).To(Equal("select count(*) from `user` where `age`> ?"))
			Expect(stmts[1].SQL).To(HaveSuffix("where `age`> ? order by `id` asc limit 20,10"))

			_, hasLimit := spec.LimitWindow()
			Expect(hasLimit).To(BeFalse())
		})
	})

	It("renders for the engine's dialect", func() {
		engine := dao.NewEngine(exec, dao.WithDialect(dialect.New(dialect.PostgreSQL{})))
		pg, err := dao.CreateProxy[PlainDao](engine)
		Expect(err).ToNot(HaveOccurred())

		_, err = pg.FindBySpec(ctx, condition.New().Eq("name", "ann").Limit(0, 5))
		Expect(err).ToNot(HaveOccurred())
		Expect(exec.Last().SQL).To(Equal(`select "id", "name", "age", "status", "email" from "user" where "name"= ? limit 5 offset 0`))
	})

	It("fails when not created through CreateProxy", func() {
		var bare PlainDao
		_, err := bare.FindBySpec(ctx, condition.New())

		var rerr *dao.ResolutionError
		Expect(errors.As(err, &rerr)).To(BeTrue())
	})
})
