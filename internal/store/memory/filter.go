package memory

import (
	"fmt"
	"strings"

	"formdeck/internal/grid"
	"formdeck/internal/meta"
	"formdeck/internal/store"
)

func matches(r meta.Row, q store.Query) bool {
	for col, want := range q.Eq {
		got, ok := r[col]
		if !ok || got == nil {
			if want != nil {
				return false
			}
			continue
		}
		// id из URL всегда строка, в строке может лежать число
		if want == nil || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	for _, col := range q.NotFalse {
		if isFalse(r[col]) {
			return false
		}
	}
	return true
}

func isFalse(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "false")
	}
	return false
}

func sortRows(rows []meta.Row, order []store.Order) {
	if len(order) == 0 {
		return
	}
	keys := make([]grid.SortKey, 0, len(order))
	for _, o := range order {
		keys = append(keys, grid.SortKey{Field: o.Column, Desc: o.Desc})
	}
	grid.Sort(rows, keys)
}
