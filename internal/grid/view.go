package grid

import (
	"fmt"
	"net/url"

	"formdeck/internal/meta"
)

// Query — параметры таблицы из адресной строки.
type Query struct {
	Search   string
	Page     int
	PageSize int
	Sort     []SortKey
}

type Cell struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

type RowView struct {
	ID    string `json:"id"`
	Cells []Cell `json:"cells"`
	Link  string `json:"link,omitempty"`
}

// View — всё, что нужно шаблону таблицы.
type View struct {
	Title   string        `json:"title"`
	Columns []meta.Column `json:"columns"`
	Rows    []RowView     `json:"rows"`
	Search  string        `json:"search"`
	Page    Page          `json:"page"`
	BaseURL string        `json:"-"`

	sort     []SortKey
	pageSize int
}

// Build: поиск → сортировка → страница → ячейки.
// Поиск идёт по колонкам таблицы. baseURL пустой — строки без ссылок на редактирование.
func Build(title string, columns []meta.Column, rows []meta.Row, q Query, baseURL string) View {
	filtered := Search(rows, q.Search, Keys(columns))
	if len(q.Sort) > 0 {
		// не трогаем исходный срез
		filtered = append([]meta.Row(nil), filtered...)
		Sort(filtered, q.Sort)
	}
	page := Paginate(filtered, q.Page, q.PageSize)

	v := View{
		Title:   title,
		Columns: columns,
		Rows:    make([]RowView, 0, len(page.Rows)),
		Search:  q.Search,
		Page:    page,
		BaseURL: baseURL,

		sort:     q.Sort,
		pageSize: q.PageSize,
	}
	for _, r := range page.Rows {
		rv := RowView{ID: Format(r["id"]), Cells: make([]Cell, 0, len(columns))}
		for _, c := range columns {
			rv.Cells = append(rv.Cells, Cell{Key: c.AccessorKey, Text: Format(r[c.AccessorKey])})
		}
		if baseURL != "" && rv.ID != "" {
			rv.Link = baseURL + "?id=" + url.QueryEscape(rv.ID)
		}
		v.Rows = append(v.Rows, rv)
	}
	return v
}

// FormView строит таблицу формы по её колонкам.
func FormView(cfg meta.MasterConfig, rows []meta.Row, q Query, baseURL string) View {
	return Build(cfg.Title, Columns(cfg), rows, q, baseURL)
}

// PageURL — ссылка на страницу n с тем же поиском, сортировкой и
// размером страницы (размер по умолчанию не пишется).
func (v View) PageURL(n int) string {
	vals := url.Values{}
	if v.Search != "" {
		vals.Set("q", v.Search)
	}
	if s := FormatSort(v.sort); s != "" {
		vals.Set("sort", s)
	}
	if v.pageSize > 0 && v.pageSize != DefaultPageSize {
		vals.Set("page_size", fmt.Sprint(v.pageSize))
	}
	vals.Set("page", fmt.Sprint(n))
	return v.BaseURL + "?" + vals.Encode()
}
