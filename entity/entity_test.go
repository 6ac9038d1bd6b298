package entity_test

import (
	"reflect"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/go-dao/entity"
)

type Audit struct {
	CreatedAt time.Time
	UpdatedAt null.Time
}

type UserInfo struct {
	ID              int64
	Name            string
	RecommendStatus int
	AndroidVersion  string `db:"android_ver"`
	Score           int    `dao:"virtual"`
	secret          string
	Ignored         string `db:"-"`
	Audit
}

type Token struct {
	Key   string `dao:"pk,uuid"`
	Owner uuid.UUID
}

func (Token) TableName() string { return "auth_tokens" }

type Badge struct {
	Code string    `dao:"pk,uuid"`
	Ref  uuid.UUID `dao:"uuid"`
}

func firstRow() reflect.Type {
	type row struct{ Alpha string }
	return reflect.TypeOf(row{})
}

func secondRow() reflect.Type {
	type row struct{ Beta int }
	return reflect.TypeOf(row{})
}

var _ = Describe("Class", func() {
	It("derives table and column names", func() {
		c, err := entity.For[UserInfo]()
		Expect(err).ToNot(HaveOccurred())

		Expect(c.Name()).To(Equal("UserInfo"))
		Expect(c.TableName()).To(Equal("user_info"))

		var cols []string
		for _, f := range c.Fields() {
			cols = append(cols, f.Column)
		}
		Expect(cols).To(Equal([]string{
			"id", "name", "recommend_status", "android_ver", "score", "created_at", "updated_at",
		}))
	})

	It("exposes logical names and overrides", func() {
		c, _ := entity.For[UserInfo]()

		f, ok := c.Lookup("recommendStatus")
		Expect(ok).To(BeTrue())
		Expect(f.Column).To(Equal("recommend_status"))
		Expect(f.HasColumnOverride()).To(BeFalse())

		f, ok = c.Lookup("AndroidVersion")
		Expect(ok).To(BeTrue())
		Expect(f.Column).To(Equal("android_ver"))
		Expect(f.ColumnOverride).To(Equal("android_ver"))
		Expect(f.HasColumnOverride()).To(BeTrue())

		_, ok = c.Lookup("recommend_STATUS")
		Expect(ok).To(BeTrue())

		_, ok = c.Lookup("secret")
		Expect(ok).To(BeFalse())
	})

	It("finds the primary key by name", func() {
		c, _ := entity.For[UserInfo]()

		pk, ok := c.PrimaryKey()
		Expect(ok).To(BeTrue())
		Expect(pk.Column).To(Equal("id"))
	})

	It("honours tags and TableName", func() {
		c, err := entity.Of(reflect.TypeOf(&Token{}))
		Expect(err).ToNot(HaveOccurred())

		Expect(c.TableName()).To(Equal("auth_tokens"))
		pk, ok := c.PrimaryKey()
		Expect(ok).To(BeTrue())
		Expect(pk.GoName).To(Equal("Key"))
		Expect(pk.AutoUUID).To(BeTrue())
	})

	It("marks virtual fields and leaves them out of the select list", func() {
		c, _ := entity.For[UserInfo]()

		f, _ := c.Lookup("score")
		Expect(f.Virtual).To(BeTrue())
		Expect(entity.SelectList(c)).To(Equal("id,name,recommend_status,android_ver,created_at,updated_at"))
	})

	It("caches reflected classes", func() {
		a, _ := entity.For[UserInfo]()
		b, _ := entity.Of(reflect.TypeOf(UserInfo{}))

		Expect(a).To(BeIdenticalTo(b))
	})

	It("keeps distinct types that print the same apart", func() {
		a, b := firstRow(), secondRow()
		Expect(a.String()).To(Equal(b.String()))

		classes := make([]entity.Class, 2)
		errs := make([]error, 2)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i, t := range []reflect.Type{a, b} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				classes[i], errs[i] = entity.Of(t)
			}()
		}
		close(start)
		wg.Wait()

		Expect(errs).To(HaveEach(BeNil()))
		Expect(classes[0].Type()).To(Equal(a))
		Expect(classes[1].Type()).To(Equal(b))
		_, ok := classes[0].Lookup("alpha")
		Expect(ok).To(BeTrue())
		_, ok = classes[1].Lookup("beta")
		Expect(ok).To(BeTrue())
		_, ok = classes[1].Lookup("alpha")
		Expect(ok).To(BeFalse())
	})

	It("rejects non struct types", func() {
		_, err := entity.For[int]()
		Expect(err).To(HaveOccurred())
	})

	It("reads column values", func() {
		c, _ := entity.For[UserInfo]()
		u := &UserInfo{ID: 3, Name: "ann", RecommendStatus: 1, AndroidVersion: "14", Score: 9}

		values, err := entity.Values(c, u)
		Expect(err).ToNot(HaveOccurred())
		Expect(values).To(HaveLen(6))
		Expect(values[0].Value).To(Equal(int64(3)))
		Expect(values[3].Field.Column).To(Equal("android_ver"))
		Expect(values[3].Value).To(Equal("14"))
	})

	It("reads column values from a map", func() {
		c, _ := entity.For[UserInfo]()

		values, err := entity.Values(c, map[string]any{"name": "ann", "recommendStatus": 2})
		Expect(err).ToNot(HaveOccurred())
		Expect(values).To(HaveLen(2))
	})

	It("fills empty uuid fields", func() {
		c, _ := entity.For[Badge]()
		b := &Badge{}

		entity.EnsureUUID(c, b)
		Expect(b.Code).To(HaveLen(36))
		Expect(b.Ref).ToNot(Equal(uuid.Nil))

		code := b.Code
		entity.EnsureUUID(c, b)
		Expect(b.Code).To(Equal(code))
	})

	It("builds static classes", func() {
		c := entity.Static("Order", "", entity.Field{Name: "orderNo", PrimaryKey: true}, entity.Field{Column: "total_amount"})

		Expect(c.TableName()).To(Equal("order"))
		pk, ok := c.PrimaryKey()
		Expect(ok).To(BeTrue())
		Expect(pk.Column).To(Equal("order_no"))

		f, ok := c.Lookup("totalAmount")
		Expect(ok).To(BeTrue())
		Expect(f.Column).To(Equal("total_amount"))
	})
})
