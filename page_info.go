package dao

// PageInfo carries Relay style page metadata. The fields are functions so
// resolvers can compute them lazily.
type PageInfo struct {
	TotalCount      func() (*int, error)
	HasPreviousPage func() (bool, error)
	HasNextPage     func() (bool, error)
	StartCursor     func() (*string, error)
	EndCursor       func() (*string, error)
}

// NewPageInfo returns the PageInfo of a page. Start and end cursors are
// the edge cursors of the first and last row, as BuildConnection makes them.
func NewPageInfo[T any](page *Pageable[T]) PageInfo {
	count := int(page.TotalElements)
	first, last := page.Offset(), page.Offset()
	if n := len(page.Data); n > 0 {
		first, last = first+1, last+n
	}

	return PageInfo{
		TotalCount:      func() (*int, error) { return &count, nil },
		StartCursor:     func() (*string, error) { return EncodeOffsetCursor(first), nil },
		EndCursor:       func() (*string, error) { return EncodeOffsetCursor(last), nil },
		HasNextPage:     func() (bool, error) { return page.HasNext(), nil },
		HasPreviousPage: func() (bool, error) { return page.HasPrevious(), nil },
	}
}

// NewEmptyPageInfo returns a PageInfo with no data, for empty results.
func NewEmptyPageInfo() *PageInfo {
	return &PageInfo{
		TotalCount:      func() (*int, error) { return nil, nil },
		StartCursor:     func() (*string, error) { return nil, nil },
		EndCursor:       func() (*string, error) { return nil, nil },
		HasNextPage:     func() (bool, error) { return false, nil },
		HasPreviousPage: func() (bool, error) { return false, nil },
	}
}
