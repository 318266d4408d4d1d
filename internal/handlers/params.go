package handlers

import (
	"net/http"
	"strconv"

	"github.com/schofire/invoiceapi/internal/query"
)

const (
	defaultPageSize = 10
	maxPageSize     = 200
)

// pageParams reads page, pageSize, search, and orderBy from the query
// string. Out-of-range explicit values are passed through so the query
// engine can reject them; only absent values get defaults.
func pageParams(r *http.Request) (query.Params, error) {
	p := query.Params{Page: 1, PageSize: defaultPageSize}

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = 0 // non-numeric: let the engine report InvalidArgument
		}
		p.Page = n
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = 0
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		p.PageSize = n
	}
	p.Search = r.URL.Query().Get("search")

	order, err := query.ParseOrder(r.URL.Query().Get("orderBy"))
	if err != nil {
		return query.Params{}, err
	}
	p.Order = order
	return p, nil
}
