package dao

import (
	"fmt"
	"reflect"
)

const (
	// DefaultPageSize is the page size used when a request does not set one.
	DefaultPageSize = 10

	// DefaultMaxPageSize is the largest page a request may ask for.
	DefaultMaxPageSize = 1000
)

// PageConfig holds page size defaults and limits.
// Use NewPageConfig() to create a config with sensible defaults,
// then customize using the With* methods.
//
// Example:
//
//	engine := dao.NewEngine(exec, dao.WithPageConfig(dao.NewPageConfig().WithMaxSize(200)))
type PageConfig struct {
	// DefaultSize is the page size used when a request has none.
	DefaultSize int

	// MaxSize caps the page size. Larger requests are capped, not rejected.
	MaxSize int
}

// NewPageConfig creates a PageConfig with DefaultSize 10 and MaxSize 1000.
func NewPageConfig() *PageConfig {
	return &PageConfig{
		DefaultSize: DefaultPageSize,
		MaxSize:     DefaultMaxPageSize,
	}
}

// WithDefaultSize sets the default page size and returns the config for chaining.
func (c *PageConfig) WithDefaultSize(size int) *PageConfig {
	if size > 0 {
		c.DefaultSize = size
	}
	return c
}

// WithMaxSize sets the maximum page size and returns the config for chaining.
func (c *PageConfig) WithMaxSize(size int) *PageConfig {
	if size > 0 {
		c.MaxSize = size
	}
	return c
}

// Apply returns the request to run: a default one for nil, otherwise a
// copy with the size defaulted and capped.
func (c *PageConfig) Apply(req *PageRequest) *PageRequest {
	if c == nil {
		c = NewPageConfig()
	}
	defaultSize := c.DefaultSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	maxSize := c.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}

	if req == nil {
		return NewPageRequest(1, defaultSize)
	}
	out := *req
	if out.Index < 1 {
		out.Index = 1
	}
	if out.Size <= 0 {
		out.Size = defaultSize
	}
	if out.Size > maxSize {
		out.Size = maxSize
	}
	return &out
}

// Validate returns a PageSizeError when req asks for more than MaxSize.
// Unlike Apply, which caps silently, Validate rejects the request.
func (c *PageConfig) Validate(req *PageRequest) error {
	if c == nil {
		c = NewPageConfig()
	}
	if req == nil {
		return nil
	}
	maxSize := c.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	if req.Size > maxSize {
		return &PageSizeError{Requested: req.Size, Maximum: maxSize}
	}
	return nil
}

// PageSizeError is returned when the requested page size exceeds the maximum allowed.
type PageSizeError struct {
	Requested int
	Maximum   int
}

// Error reports the requested size and the limit.
func (e *PageSizeError) Error() string {
	return fmt.Sprintf("requested page size %d exceeds maximum allowed page size of %d",
		e.Requested, e.Maximum)
}

// PageRequest asks for one page. Index is 1-based. Start, when positive,
// overrides the offset computed from Index. TotalElements, when positive,
// is trusted and the count query is skipped.
type PageRequest struct {
	Index         int   `json:"index"`
	Size          int   `json:"size"`
	Start         int   `json:"start,omitempty"`
	TotalElements int64 `json:"totalElements,omitempty"`
}

// NewPageRequest returns a request for page index of size rows. Index is
// clamped to 1 and a non positive size becomes DefaultPageSize.
func NewPageRequest(index, size int) *PageRequest {
	if index < 1 {
		index = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	return &PageRequest{Index: index, Size: size}
}

// Offset is the number of rows skipped.
func (r *PageRequest) Offset() int {
	if r.Start > 0 {
		return r.Start
	}
	if r.Index < 1 {
		return 0
	}
	return (r.Index - 1) * r.Size
}

// WithTotal records a known total so the next query skips counting.
func (r *PageRequest) WithTotal(total int64) *PageRequest {
	r.TotalElements = total
	return r
}

// ResetTotal forgets the known total so the next query counts again.
func (r *PageRequest) ResetTotal() {
	r.TotalElements = 0
}

// Pageable is one page of results with its position in the full set.
type Pageable[T any] struct {
	Index         int   `json:"index"`
	Size          int   `json:"size"`
	Start         int   `json:"start,omitempty"`
	TotalElements int64 `json:"totalElements"`
	Data          []T   `json:"data"`
}

// NewPageable builds a page for req holding data out of total rows.
func NewPageable[T any](req *PageRequest, total int64, data []T) *Pageable[T] {
	if req == nil {
		req = NewPageRequest(1, DefaultPageSize)
	}
	if data == nil {
		data = []T{}
	}
	return &Pageable[T]{
		Index:         req.Index,
		Size:          req.Size,
		Start:         req.Start,
		TotalElements: total,
		Data:          data,
	}
}

// Request returns the request that produced the page.
func (p *Pageable[T]) Request() *PageRequest {
	return &PageRequest{Index: p.Index, Size: p.Size, Start: p.Start, TotalElements: p.TotalElements}
}

// Offset is the number of rows before the page.
func (p *Pageable[T]) Offset() int {
	return p.Request().Offset()
}

// TotalPages is ceil(TotalElements / Size).
func (p *Pageable[T]) TotalPages() int {
	if p.Size <= 0 || p.TotalElements <= 0 {
		return 0
	}
	size := int64(p.Size)
	return int((p.TotalElements + size - 1) / size)
}

// HasNext reports whether rows exist after this page.
func (p *Pageable[T]) HasNext() bool {
	return int64(p.Offset()+p.Size) < p.TotalElements
}

// HasPrevious reports whether rows exist before this page.
func (p *Pageable[T]) HasPrevious() bool {
	return p.Offset() > 0
}

// NextRequest returns the request for the following page, carrying the
// total forward so it is not counted again.
func (p *Pageable[T]) NextRequest() *PageRequest {
	req := NewPageRequest(p.Index+1, p.Size)
	if p.Start > 0 {
		req.Start = p.Start + p.Size
	}
	req.TotalElements = p.TotalElements
	return req
}

// MapPage converts the data of a page, keeping its position.
func MapPage[From any, To any](p *Pageable[From], transform func(From) (To, error)) (*Pageable[To], error) {
	out := make([]To, 0, len(p.Data))
	for i, item := range p.Data {
		v, err := transform(item)
		if err != nil {
			return nil, fmt.Errorf("transform item at index %d: %w", i, err)
		}
		out = append(out, v)
	}
	return &Pageable[To]{
		Index:         p.Index,
		Size:          p.Size,
		Start:         p.Start,
		TotalElements: p.TotalElements,
		Data:          out,
	}, nil
}

// pageResult lets the resolver fill a *Pageable[T] it only knows by type.
type pageResult interface {
	elemType() reflect.Type
	fill(req *PageRequest, total int64, data reflect.Value)
}

func (p *Pageable[T]) elemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (p *Pageable[T]) fill(req *PageRequest, total int64, data reflect.Value) {
	*p = *NewPageable(req, total, data.Interface().([]T))
}

var pageResultType = reflect.TypeOf((*pageResult)(nil)).Elem()
