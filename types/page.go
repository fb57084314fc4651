/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

const (
	DefaultPageSize = 10
	MaxPageSize     = 1000
)

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest describes a 1-based page, optional filter, and ordering.
type PageRequest struct {
	page     int
	pageSize int
	filter   *QueryFilter
	orders   []string // "m.member_id ASC", "m.username DESC"
}

func (p *PageRequest) GetPageSize() int {
	switch {
	case p.pageSize < 1:
		p.pageSize = DefaultPageSize
	case p.pageSize > MaxPageSize:
		p.pageSize = MaxPageSize
	}
	return p.pageSize
}

func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

func (p *PageRequest) GetFilter() *QueryFilter {
	return p.filter
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// HasOrders reports whether explicit ordering was requested.
func (p *PageRequest) HasOrders() bool {
	return len(p.orders) > 0
}

// NewPageRequest constructs a PageRequest with filter and order settings.
func NewPageRequest(page int, pageSize int, filter *QueryFilter, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, filter, orders}
}

// NewPageRequestWithOrders constructs a PageRequest with ordering only.
func NewPageRequestWithOrders(page int, pageSize int, orders []string) *PageRequest {
	return NewPageRequest(page, pageSize, nil, orders)
}

// NewDefaultPageRequest constructs a PageRequest with no filter or ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil, make([]string, 0))
}

// Pagination holds paged result items along with pagination metadata.
type Pagination[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	Items    []*T `json:"items"`
}

// NewDefaultPagination constructs an empty pagination container.
func NewDefaultPagination[T any](page int, pageSize int) *Pagination[T] {
	return &Pagination[T]{page, pageSize, 0, make([]*T, 0)}
}

// TotalPages returns the number of pages needed to hold Total items.
func (p *Pagination[T]) TotalPages() int {
	if p.PageSize < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p *Pagination[T]) IsFirst() bool { return p.Page <= 1 }

func (p *Pagination[T]) IsLast() bool { return p.Page >= p.TotalPages() }

func (p *Pagination[T]) HasNext() bool { return p.Page < p.TotalPages() }

// CountFunc returns the total number of rows matching a paged query.
type CountFunc func() (int, error)

// ResolvePage builds a Pagination from an already fetched page of items and
// calls count only when the total cannot be derived from the page itself:
// a first page that is not full holds every row, and a later non-empty page
// that is not full ends at offset+len(items).
func ResolvePage[T any](items []*T, request *PageRequest, count CountFunc) (*Pagination[T], error) {
	pagination := NewDefaultPagination[T](request.GetPage(), request.GetPageSize())
	if items != nil {
		pagination.Items = items
	}
	size := request.GetPageSize()
	offset := request.GetOffset()
	switch {
	case offset == 0 && len(items) < size:
		pagination.Total = len(items)
	case len(items) != 0 && len(items) < size:
		pagination.Total = offset + len(items)
	default:
		total, err := count()
		if err != nil {
			return nil, err
		}
		pagination.Total = total
	}
	return pagination, nil
}
