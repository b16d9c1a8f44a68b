package meta

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is a jsonb array of strings.
type StringList []string

// scanJSON decodes a jsonb column value; NULL leaves dst untouched.
func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("meta: cannot scan %T into %T", src, dst)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func valueJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error { return scanJSON(src, (*[]string)(l)) }

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return valueJSON([]string{})
	}
	return valueJSON([]string(l))
}

func (d *DatatableConfig) Scan(src any) error {
	type plain DatatableConfig
	return scanJSON(src, (*plain)(d))
}

func (d DatatableConfig) Value() (driver.Value, error) {
	type plain DatatableConfig
	return valueJSON(plain(d))
}

func (o *OptionsConfig) Scan(src any) error {
	type plain OptionsConfig
	return scanJSON(src, (*plain)(o))
}

func (o OptionsConfig) Value() (driver.Value, error) {
	type plain OptionsConfig
	return valueJSON(plain(o))
}

func (r *Rules) Scan(src any) error { return scanJSON(src, (*map[string]any)(r)) }

func (r Rules) Value() (driver.Value, error) {
	if r == nil {
		return valueJSON(map[string]any{})
	}
	return valueJSON(map[string]any(r))
}
