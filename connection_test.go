package dao_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/go-dao"
)

type DomainUser struct {
	ID       string
	FullName string
}

func toDomain(u User) (*DomainUser, error) {
	return &DomainUser{ID: fmt.Sprintf("user-%d", u.ID), FullName: u.Name}, nil
}

var _ = Describe("Connection", func() {
	users := []User{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
		{ID: 3, Name: "Charlie"},
	}

	Describe("BuildConnection", func() {
		It("builds edges and nodes for the first page", func() {
			page := dao.NewPageable(dao.NewPageRequest(1, 3), 10, users)

			conn, err := dao.BuildConnection(page, toDomain)
			Expect(err).ToNot(HaveOccurred())

			Expect(conn.Nodes).To(HaveLen(3))
			Expect(conn.Nodes[0].ID).To(Equal("user-1"))
			Expect(conn.Nodes[2].FullName).To(Equal("Charlie"))

			Expect(conn.Edges).To(HaveLen(3))
			Expect(conn.Edges[0].Node).To(Equal(conn.Nodes[0]))
			Expect(dao.DecodeOffsetCursor(&conn.Edges[0].Cursor)).To(Equal(1))
			Expect(dao.DecodeOffsetCursor(&conn.Edges[2].Cursor)).To(Equal(3))

			hasNext, _ := conn.PageInfo.HasNextPage()
			hasPrev, _ := conn.PageInfo.HasPreviousPage()
			total, _ := conn.PageInfo.TotalCount()
			Expect(hasNext).To(BeTrue())
			Expect(hasPrev).To(BeFalse())
			Expect(*total).To(Equal(10))
		})

		It("offsets the cursors of later pages", func() {
			req := dao.PageRequestAfter(dao.EncodeOffsetCursor(2), 2)
			page := dao.NewPageable(req, 10, users[:2])

			conn, err := dao.BuildConnection(page, toDomain)
			Expect(err).ToNot(HaveOccurred())
			Expect(dao.DecodeOffsetCursor(&conn.Edges[0].Cursor)).To(Equal(3))
			Expect(dao.DecodeOffsetCursor(&conn.Edges[1].Cursor)).To(Equal(4))

			next := dao.PageRequestAfter(&conn.Edges[1].Cursor, 2)
			Expect(next.Offset()).To(Equal(4))
		})

		It("handles an empty page", func() {
			page := dao.NewPageable[User](dao.NewPageRequest(1, 10), 0, nil)

			conn, err := dao.BuildConnection(page, toDomain)
			Expect(err).ToNot(HaveOccurred())
			Expect(conn.Nodes).To(BeEmpty())
			Expect(conn.Edges).To(BeEmpty())
		})

		It("propagates transform errors", func() {
			page := dao.NewPageable(dao.NewPageRequest(1, 3), 3, users)

			conn, err := dao.BuildConnection(page, func(u User) (*DomainUser, error) {
				if u.Name == "Bob" {
					return nil, fmt.Errorf("invalid user: %s", u.Name)
				}
				return toDomain(u)
			})
			Expect(err).To(MatchError(ContainSubstring("transform item at index 1")))
			Expect(err.Error()).To(ContainSubstring("invalid user"))
			Expect(conn).To(BeNil())
		})
	})

	Describe("from a proxy method", func() {
		type PagedUserDao struct {
			dao.Base[User]

			FindAll func(ctx context.Context, req *dao.PageRequest) (*dao.Pageable[User], error)
		}

		It("pages through a result set", func() {
			exec := &recordingExecutor{count: 5, rows: userRows(users[0], users[1])}
			userDao, err := dao.CreateProxy[PagedUserDao](dao.NewEngine(exec))
			Expect(err).ToNot(HaveOccurred())

			first := 2
			page, err := userDao.FindAll(context.Background(), dao.PageRequestAfter(nil, first))
			Expect(err).ToNot(HaveOccurred())

			conn, err := dao.BuildConnection(page, toDomain)
			Expect(err).ToNot(HaveOccurred())
			Expect(conn.Nodes).To(HaveLen(2))

			endCursor, _ := conn.PageInfo.EndCursor()
			next := dao.PageRequestAfter(endCursor, first)
			Expect(next.Offset()).To(Equal(2))
			Expect(exec.Last().SQL).To(HaveSuffix("limit 0,2"))
		})
	})
})
