package grid

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"formdeck/internal/meta"
)

type SortKey struct {
	Field string
	Desc  bool
}

// ParseSort разбирает "name,-created_at" в ключи сортировки.
func ParseSort(s string) []SortKey {
	var keys []SortKey
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		desc := false
		if strings.HasPrefix(p, "-") {
			desc = true
			p = strings.TrimPrefix(p, "-")
		} else {
			p = strings.TrimPrefix(p, "+")
		}
		if p != "" {
			keys = append(keys, SortKey{Field: p, Desc: desc})
		}
	}
	return keys
}

// FormatSort — обратная к ParseSort запись ключей.
func FormatSort(keys []SortKey) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Desc {
			parts = append(parts, "-"+k.Field)
		} else {
			parts = append(parts, k.Field)
		}
	}
	return strings.Join(parts, ",")
}

func isNull(v any, ok bool) bool { return !ok || v == nil }

// сравнение двух строк по одному ключу; null всегда в конце
func cmpByKey(a, b meta.Row, key string, desc bool) int {
	va, oka := a[key]
	vb, okb := b[key]

	na := isNull(va, oka)
	nb := isNull(vb, okb)
	if na && nb {
		return 0
	}
	if na != nb {
		if na {
			return +1
		}
		return -1
	}

	rel := 0
	// числа сравниваем как числа, остальное строково
	da, errA := decimal.NewFromString(toString(va))
	db, errB := decimal.NewFromString(toString(vb))
	if errA == nil && errB == nil {
		rel = da.Cmp(db)
	} else {
		rel = strings.Compare(strings.ToLower(toString(va)), strings.ToLower(toString(vb)))
	}
	if desc {
		rel = -rel
	}
	return rel
}

// Sort — стабильная мультисортировка строк.
func Sort(rows []meta.Row, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			if c := cmpByKey(rows[i], rows[j], k.Field, k.Desc); c != 0 {
				return c < 0
			}
		}
		return false
	})
}
