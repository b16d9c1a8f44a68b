// Package form lays out, validates and diffs dynamic form submissions.
package form

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"formdeck/internal/apperror"
	"formdeck/internal/meta"
)

// FieldErrors maps column name to a user-facing message.
type FieldErrors map[string]string

// Err returns nil for no errors, otherwise a validation AppError carrying the fields.
func (e FieldErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return apperror.NewFieldErrors(map[string]string(e))
}

func (e FieldErrors) merge(other FieldErrors) FieldErrors {
	if e == nil {
		e = FieldErrors{}
	}
	for k, v := range other {
		if _, ok := e[k]; !ok {
			e[k] = v
		}
	}
	return e
}

const dateLayout = "2006-01-02"

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func emailValidator() *validator.Validate {
	validateOnce.Do(func() { validate = validator.New() })
	return validate
}

// IsEmpty: nil, пустая/пробельная строка, false, пустой срез или map.
// Ноль считается заполненным значением.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case *string:
		return t == nil || strings.TrimSpace(*t) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

// Validate checks "required" on fields of main sections only.
func Validate(cfg meta.MasterConfig, data map[string]any) FieldErrors {
	errs := FieldErrors{}
	for _, f := range cfg.MainFields() {
		if f.Required() && IsEmpty(data[f.Column]) {
			errs[f.Column] = fmt.Sprintf("%s is required", f.DisplayLabel())
		}
	}
	return errs
}

// Coerce приводит значения к типам полей и отбрасывает ключи,
// которых нет в основных секциях формы.
func Coerce(cfg meta.MasterConfig, data map[string]any) (map[string]any, FieldErrors) {
	out := make(map[string]any, len(data))
	errs := FieldErrors{}
	for _, f := range cfg.MainFields() {
		raw, ok := data[f.Column]
		if !ok {
			continue
		}
		v, msg := coerceValue(f, raw)
		if msg != "" {
			errs[f.Column] = msg
			out[f.Column] = raw
			continue
		}
		out[f.Column] = v
	}
	return out, errs
}

func coerceValue(f meta.Field, raw any) (any, string) {
	label := f.DisplayLabel()
	switch f.Type() {
	case meta.InputNumber:
		if IsEmpty(raw) {
			return nil, ""
		}
		d, err := toDecimal(raw)
		if err != nil {
			return nil, fmt.Sprintf("%s must be a number", label)
		}
		return d, ""

	case meta.InputCheckbox:
		return truthy(raw), ""

	case meta.InputEmail:
		s := strings.TrimSpace(stringOf(raw))
		if s == "" {
			return s, ""
		}
		if err := emailValidator().Var(s, "email"); err != nil {
			return nil, fmt.Sprintf("%s must be a valid email address", label)
		}
		return s, ""

	case meta.InputDate:
		switch t := raw.(type) {
		case time.Time:
			return t.Format(dateLayout), ""
		case nil:
			return nil, ""
		}
		s := strings.TrimSpace(stringOf(raw))
		if s == "" {
			return s, ""
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, fmt.Sprintf("%s must be a date (YYYY-MM-DD)", label)
		}
		return s, ""

	default:
		if s, ok := raw.(string); ok {
			return s, ""
		}
		return raw, ""
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(t)))
	default:
		return decimal.Decimal{}, fmt.Errorf("not a number: %T", v)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "on", "true", "1", "yes":
			return true
		}
		return false
	case []string:
		// html checkbox + hidden fallback присылает оба значения
		for _, s := range t {
			if truthy(s) {
				return true
			}
		}
		return false
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// Decode собирает данные HTML-формы: по одному значению на колонку основных
// секций. Неотмеченный checkbox браузер не присылает — ставим false.
func Decode(cfg meta.MasterConfig, values url.Values) map[string]any {
	out := map[string]any{}
	for _, f := range cfg.MainFields() {
		vals, ok := values[f.Column]
		if f.Type() == meta.InputCheckbox {
			out[f.Column] = ok && truthy(vals)
			continue
		}
		if !ok || len(vals) == 0 {
			continue
		}
		out[f.Column] = vals[0]
	}
	return out
}

// Baseline — копия сохранённой записи, в которой checkbox-колонки основных
// секций приведены к bool: NULL или отсутствующая колонка равны false,
// как и неотмеченный checkbox после Decode.
func Baseline(cfg meta.MasterConfig, row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, f := range cfg.MainFields() {
		if f.Type() == meta.InputCheckbox {
			out[f.Column] = truthy(row[f.Column])
		}
	}
	return out
}

// Check = Coerce + Validate. Ошибки приведения важнее "required".
func Check(cfg meta.MasterConfig, data map[string]any) (map[string]any, FieldErrors) {
	coerced, errs := Coerce(cfg, data)
	errs = errs.merge(Validate(cfg, coerced))
	return coerced, errs
}
