package api

import (
	"net/url"
	"strconv"

	"formdeck/internal/grid"
)

const maxPageSize = 1000

// ==== Парсинг query-параметров таблицы ====

// parseTableQuery читает q, page, page_size и sort ("name,-created_at").
// Некорректные числа игнорируются: остаются значения по умолчанию.
func parseTableQuery(q url.Values) grid.Query {
	out := grid.Query{Search: q.Get("q")}

	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.Page = n
		}
	}
	pv := q.Get("page_size")
	if pv == "" {
		pv = q.Get("limit")
	}
	if pv != "" {
		if n, err := strconv.Atoi(pv); err == nil && n > 0 && n <= maxPageSize {
			out.PageSize = n
		}
	}
	out.Sort = grid.ParseSort(q.Get("sort"))
	return out
}
