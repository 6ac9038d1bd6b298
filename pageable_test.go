package dao_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/go-dao"
)

var _ = Describe("PageRequest", func() {
	It("clamps the index and defaults the size", func() {
		req := dao.NewPageRequest(0, 0)
		Expect(req.Index).To(Equal(1))
		Expect(req.Size).To(Equal(dao.DefaultPageSize))
		Expect(req.Offset()).To(Equal(0))
	})

	It("computes the offset from the index", func() {
		Expect(dao.NewPageRequest(3, 20).Offset()).To(Equal(40))
	})

	It("prefers an explicit start", func() {
		req := dao.NewPageRequest(3, 20)
		req.Start = 7
		Expect(req.Offset()).To(Equal(7))
	})

	It("remembers and forgets a known total", func() {
		req := dao.NewPageRequest(1, 10).WithTotal(42)
		Expect(req.TotalElements).To(Equal(int64(42)))
		req.ResetTotal()
		Expect(req.TotalElements).To(BeZero())
	})
})

var _ = Describe("PageConfig", func() {
	It("has sensible defaults", func() {
		cfg := dao.NewPageConfig()
		Expect(cfg.DefaultSize).To(Equal(10))
		Expect(cfg.MaxSize).To(Equal(1000))
	})

	It("ignores non positive sizes", func() {
		cfg := dao.NewPageConfig().WithDefaultSize(0).WithMaxSize(-1)
		Expect(cfg.DefaultSize).To(Equal(10))
		Expect(cfg.MaxSize).To(Equal(1000))
	})

	Describe("Apply", func() {
		It("returns a default request for nil", func() {
			req := dao.NewPageConfig().WithDefaultSize(25).Apply(nil)
			Expect(req.Index).To(Equal(1))
			Expect(req.Size).To(Equal(25))
		})

		It("caps the size without touching the original", func() {
			orig := &dao.PageRequest{Index: 2, Size: 500}
			req := dao.NewPageConfig().WithMaxSize(100).Apply(orig)

			Expect(req.Size).To(Equal(100))
			Expect(req.Index).To(Equal(2))
			Expect(orig.Size).To(Equal(500))
		})

		It("fills a missing size and index", func() {
			req := dao.NewPageConfig().Apply(&dao.PageRequest{})
			Expect(req.Index).To(Equal(1))
			Expect(req.Size).To(Equal(10))
		})

		It("works on a nil config", func() {
			var cfg *dao.PageConfig
			Expect(cfg.Apply(nil).Size).To(Equal(dao.DefaultPageSize))
		})
	})

	Describe("Validate", func() {
		It("accepts sizes up to the maximum", func() {
			cfg := dao.NewPageConfig().WithMaxSize(50)
			Expect(cfg.Validate(dao.NewPageRequest(1, 50))).To(Succeed())
			Expect(cfg.Validate(nil)).To(Succeed())
		})

		It("rejects larger sizes", func() {
			err := dao.NewPageConfig().WithMaxSize(50).Validate(dao.NewPageRequest(1, 51))

			var sizeErr *dao.PageSizeError
			Expect(errors.As(err, &sizeErr)).To(BeTrue())
			Expect(sizeErr.Requested).To(Equal(51))
			Expect(sizeErr.Maximum).To(Equal(50))
			Expect(err.Error()).To(Equal("requested page size 51 exceeds maximum allowed page size of 50"))
		})
	})
})

var _ = Describe("Pageable", func() {
	It("reports its position", func() {
		page := dao.NewPageable(dao.NewPageRequest(2, 10), 35, []int{11, 12})

		Expect(page.Offset()).To(Equal(10))
		Expect(page.TotalPages()).To(Equal(4))
		Expect(page.HasPrevious()).To(BeTrue())
		Expect(page.HasNext()).To(BeTrue())
	})

	It("knows the last page", func() {
		page := dao.NewPageable(dao.NewPageRequest(4, 10), 35, []int{31})
		Expect(page.HasNext()).To(BeFalse())
	})

	It("never holds nil data", func() {
		page := dao.NewPageable[int](nil, 0, nil)
		Expect(page.Data).ToNot(BeNil())
		Expect(page.Data).To(BeEmpty())
		Expect(page.TotalPages()).To(BeZero())
		Expect(page.HasPrevious()).To(BeFalse())
	})

	It("carries the total into the next request", func() {
		next := dao.NewPageable(dao.NewPageRequest(1, 10), 35, []int{1}).NextRequest()

		Expect(next.Index).To(Equal(2))
		Expect(next.Size).To(Equal(10))
		Expect(next.TotalElements).To(Equal(int64(35)))
	})

	It("advances an explicit start", func() {
		req := dao.NewPageRequest(1, 10)
		req.Start = 5
		next := dao.NewPageable(req, 35, []int{1}).NextRequest()
		Expect(next.Offset()).To(Equal(15))
	})

	Describe("MapPage", func() {
		It("transforms the data and keeps the position", func() {
			page := dao.NewPageable(dao.NewPageRequest(2, 2), 5, []int{3, 4})

			out, err := dao.MapPage(page, func(n int) (string, error) {
				return fmt.Sprintf("#%d", n), nil
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(out.Data).To(Equal([]string{"#3", "#4"}))
			Expect(out.Index).To(Equal(2))
			Expect(out.TotalElements).To(Equal(int64(5)))
		})

		It("reports the failing item", func() {
			page := dao.NewPageable(dao.NewPageRequest(1, 2), 2, []int{1, 2})

			_, err := dao.MapPage(page, func(n int) (string, error) {
				if n == 2 {
					return "", errors.New("boom")
				}
				return "", nil
			})
			Expect(err).To(MatchError(ContainSubstring("transform item at index 1: boom")))
		})
	})
})
