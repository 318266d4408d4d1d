// Package query implements the paginated-query engine shared by the
// customer, invoice, and report listing endpoints: optional substring
// filter on a display column, optional sort by related-child count, then
// offset/limit pagination with page-count metadata.
package query

import (
	"fmt"
	"math"

	"github.com/schofire/invoiceapi/internal/apperr"
	"gorm.io/gorm"
)

// Order directs sorting by the count of related child records.
type Order int

const (
	None Order = iota
	Ascending
	Descending
)

// ParseOrder maps the orderBy query parameter to an Order.
// Empty means no explicit ordering.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "":
		return None, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return None, fmt.Errorf("%w: orderBy must be asc or desc", apperr.ErrInvalidArgument)
}

// Params is a page request. Page and PageSize are 1-based and must be >= 1.
type Params struct {
	Page     int
	PageSize int
	Search   string
	Order    Order
}

// Meta describes the page that was produced. TotalPages is computed over
// the unfiltered base collection, not the filtered result count; dependent
// clients rely on that behavior (see DESIGN.md).
type Meta struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// Page is a bounded slice of results plus its metadata.
type Page[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// Spec describes how one entity kind is filtered and sorted.
type Spec struct {
	// SearchColumn is the display field matched as a case-sensitive
	// substring when Params.Search is non-empty.
	SearchColumn string
	// OrderExpr is a SQL expression producing the related-child count
	// used as the sort key for Ascending/Descending.
	OrderExpr string
}

// Run executes a page request against the base collection. base must return
// a fresh query (model and fence conditions applied) on every call so the
// count and the find do not share GORM statement state.
//
// A page past the end returns empty items with meta still reflecting the
// requested page, page size, and computed total.
func Run[T any](base func() *gorm.DB, p Params, spec Spec) (Page[T], error) {
	if p.Page < 1 || p.PageSize < 1 {
		return Page[T]{}, fmt.Errorf("%w: page and pageSize must be >= 1", apperr.ErrInvalidArgument)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return Page[T]{}, fmt.Errorf("%w: count: %v", apperr.ErrUnavailable, err)
	}

	q := base()
	if p.Search != "" && spec.SearchColumn != "" {
		q = q.Where(containsExpr(q, spec.SearchColumn), p.Search)
	}
	switch p.Order {
	case Ascending:
		q = q.Order(fmt.Sprintf("(%s) ASC", spec.OrderExpr))
	case Descending:
		q = q.Order(fmt.Sprintf("(%s) DESC", spec.OrderExpr))
	}

	items := []T{}
	err := q.Offset((p.Page - 1) * p.PageSize).
		Limit(p.PageSize).
		Find(&items).Error
	if err != nil {
		return Page[T]{}, fmt.Errorf("%w: find: %v", apperr.ErrUnavailable, err)
	}

	return Page[T]{
		Items: items,
		Meta: Meta{
			Page:       p.Page,
			PageSize:   p.PageSize,
			TotalPages: int(math.Ceil(float64(total) / float64(p.PageSize))),
		},
	}, nil
}

// containsExpr builds a case-sensitive substring predicate for the current
// dialect. LIKE is avoided: sqlite's LIKE folds ASCII case, which would
// silently change the filter contract between backends.
func containsExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("instr(%s, ?) > 0", column)
	}
	return fmt.Sprintf("strpos(%s, ?) > 0", column)
}
