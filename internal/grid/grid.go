// Package grid превращает метаданные колонок в таблицу с поиском и пагинацией.
package grid

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"formdeck/internal/meta"
)

// DefaultPageSize — сколько строк на странице, если размер не задан.
const DefaultPageSize = 7

// Columns возвращает колонки таблицы: default_columns формы, а если их нет —
// по одной колонке на каждое поле основных секций.
func Columns(cfg meta.MasterConfig) []meta.Column {
	if cols := cfg.Columns(); len(cols) > 0 {
		return cols
	}
	fields := cfg.MainFields()
	out := make([]meta.Column, 0, len(fields))
	for _, f := range fields {
		out = append(out, meta.Column{Header: f.DisplayLabel(), AccessorKey: f.Column, Type: f.Type()})
	}
	return out
}

// SectionColumns — колонки для вложенной таблицы дочерней секции.
func SectionColumns(s meta.Section) []meta.Column {
	out := make([]meta.Column, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, meta.Column{Header: f.DisplayLabel(), AccessorKey: f.Column, Type: f.Type()})
	}
	return out
}

// Keys — accessorKey колонок по порядку.
func Keys(cols []meta.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.AccessorKey)
	}
	return out
}

// Search оставляет строки, у которых значение хотя бы одной из колонок
// содержит term без учёта регистра. Term не обрезается: пробелы в нём
// тоже ищутся. Пустой term — все строки;
// пустой columns — ищем по всем колонкам строки.
func Search(rows []meta.Row, term string, columns []string) []meta.Row {
	term = strings.ToLower(term)
	if term == "" {
		return rows
	}
	out := make([]meta.Row, 0, len(rows))
	for _, r := range rows {
		if rowMatches(r, term, columns) {
			out = append(out, r)
		}
	}
	return out
}

func rowMatches(r meta.Row, term string, columns []string) bool {
	match := func(v any) bool {
		return v != nil && strings.Contains(strings.ToLower(toString(v)), term)
	}
	if len(columns) == 0 {
		for _, v := range r {
			if match(v) {
				return true
			}
		}
		return false
	}
	for _, col := range columns {
		if match(r[col]) {
			return true
		}
	}
	return false
}

// Page — одна страница результата.
type Page struct {
	Rows       []meta.Row `json:"rows"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
	From       int        `json:"from"` // 1-based, 0 когда пусто
	To         int        `json:"to"`
}

// HasPrev/HasNext нужны шаблону для кнопок Previous/Next.
func (p Page) HasPrev() bool { return p.Page > 1 }
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// Summary — "Showing X to Y of Z results".
func (p Page) Summary() string {
	return fmt.Sprintf("Showing %d to %d of %d results", p.From, p.To, p.Total)
}

// Paginate режет rows на страницы размера size (<=0 → DefaultPageSize).
// Номер страницы зажимается в [1, max(TotalPages,1)].
func Paginate(rows []meta.Row, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(rows)
	totalPages := int(math.Ceil(float64(total) / float64(size)))

	last := totalPages
	if last < 1 {
		last = 1
	}
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	if rows == nil {
		rows = []meta.Row{}
	}
	p := Page{
		Rows:       rows[start:end],
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		Total:      total,
	}
	if total > 0 {
		p.From = start + 1
		p.To = end
	}
	return p
}

// Format — текст ячейки: nil → "", bool → Yes/No, время → дата.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return Format(*t)
	default:
		return toString(v)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case decimal.Decimal:
		return t.String()
	case float64:
		return decimal.NewFromFloat(t).String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
