package form

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// CreatePayload keeps only keys with a non-nil, non-"" value.
func CreatePayload(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if blank(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// UpdatePayload keeps keys whose value differs from original.
// Blank values are skipped, so a cleared input never nulls a column.
func UpdatePayload(data, original map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range data {
		if blank(v) {
			continue
		}
		if Equal(v, original[k]) {
			continue
		}
		out[k] = v
	}
	return out
}

// Equal сравнивает значения после нормализации: числа по значению,
// bool с "true"/"false", даты с "YYYY-MM-DD", строки как есть,
// остальное по JSON.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if da, ok := numeric(a); ok {
		if db, ok := numericLoose(b); ok {
			return da.Equal(db)
		}
		return false
	}
	if db, ok := numeric(b); ok {
		if da, ok := numericLoose(a); ok {
			return da.Equal(db)
		}
		return false
	}

	if ba, ok := a.(bool); ok {
		return boolLoose(b, ba)
	}
	if bb, ok := b.(bool); ok {
		return boolLoose(a, bb)
	}

	if ta, ok := a.(time.Time); ok {
		return sameTime(ta, b)
	}
	if tb, ok := b.(time.Time); ok {
		return sameTime(tb, a)
	}

	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return sa == sb
	}
	if okA || okB {
		// строка против []byte и подобного
		return stringOf(a) == stringOf(b)
	}

	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}

// numeric — значения, которые уже являются числами.
func numeric(v any) (decimal.Decimal, bool) {
	switch v.(type) {
	case decimal.Decimal, float64, float32, int, int32, int64, json.Number:
		d, err := toDecimal(v)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// numericLoose дополнительно принимает строку с числом (numeric из pg приходит строкой).
func numericLoose(v any) (decimal.Decimal, bool) {
	if d, ok := numeric(v); ok {
		return d, true
	}
	switch v.(type) {
	case string, []byte:
		d, err := toDecimal(v)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func boolLoose(v any, want bool) bool {
	switch t := v.(type) {
	case bool:
		return t == want
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if want {
			return s == "true" || s == "1" || s == "on" || s == "yes"
		}
		return s == "false" || s == "0" || s == "off" || s == "no"
	}
	return false
}

func sameTime(t time.Time, v any) bool {
	switch o := v.(type) {
	case time.Time:
		return t.Equal(o)
	case string:
		s := strings.TrimSpace(o)
		if p, err := time.Parse(dateLayout, s); err == nil {
			return t.Format(dateLayout) == p.Format(dateLayout) && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
		}
		if p, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.Equal(p)
		}
	}
	return false
}
