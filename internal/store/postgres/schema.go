package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"formdeck/internal/meta"
)

// системные колонки каждой таблицы данных
var systemColumns = []struct{ name, def string }{
	{"id", "text PRIMARY KEY DEFAULT gen_random_uuid()::text"},
	{"company_id", "text"},
	{"created_at", "timestamptz NOT NULL DEFAULT now()"},
	{"updated_at", "timestamptz"},
}

func isSystemColumn(name string) bool {
	for _, c := range systemColumns {
		if c.name == name {
			return true
		}
	}
	return false
}

// mapType: input_type поля → тип колонки.
func mapType(f meta.Field) string {
	switch f.Type() {
	case meta.InputNumber:
		return "numeric"
	case meta.InputCheckbox:
		return "boolean"
	case meta.InputDate:
		return "date"
	default:
		return "text"
	}
}

type tableDef struct {
	columns []string          // в порядке появления
	types   map[string]string // колонка → тип
	indexed []string          // ключи к родителю
}

func (t *tableDef) add(col, typ, where string) error {
	if prev, ok := t.types[col]; ok {
		if prev != typ {
			return fmt.Errorf("%s: column %q is both %s and %s", where, col, prev, typ)
		}
		return nil
	}
	t.types[col] = typ
	t.columns = append(t.columns, col)
	return nil
}

// GenerateTableDDL строит CREATE TABLE для основных и дочерних таблиц форм.
// Одна таблица может встречаться в нескольких формах: колонки объединяются.
// Ключ карты задаёт порядок применения (таблицы, затем индексы).
func GenerateTableDDL(configs []meta.MasterConfig) (map[string]string, error) {
	tables := map[string]*tableDef{}
	get := func(name string) *tableDef {
		t := tables[name]
		if t == nil {
			t = &tableDef{types: map[string]string{}}
			tables[name] = t
		}
		return t
	}

	for _, c := range configs {
		primary := c.CleanTable()
		for _, s := range c.Sections {
			name := primary
			if s.IsChild() {
				name = meta.CleanTable(s.TableName)
			}
			t := get(name)
			if s.IsChild() {
				key := s.ParentKey()
				if err := t.add(key, "text", c.Slug+"/"+s.Title); err != nil {
					return nil, err
				}
				t.indexed = append(t.indexed, key)
			}
			for _, f := range s.Fields {
				if isSystemColumn(f.Column) {
					continue
				}
				if err := t.add(f.Column, mapType(f), c.Slug+"/"+s.Title); err != nil {
					return nil, err
				}
			}
		}
		get(primary) // форма без основных полей всё равно получает таблицу
	}

	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make(map[string]string, len(names))
	for _, name := range names {
		t := tables[name]
		qt, err := quote(name)
		if err != nil {
			return nil, err
		}

		cols := make([]string, 0, len(systemColumns)+len(t.columns))
		for _, sc := range systemColumns {
			cols = append(cols, fmt.Sprintf("%q %s", sc.name, sc.def))
		}
		for _, col := range t.columns {
			qc, err := quote(col)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", name, err)
			}
			cols = append(cols, qc+" "+t.types[col])
		}
		out["100_table_"+name] = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", qt, strings.Join(cols, ",\n  "))

		seen := map[string]bool{}
		for _, key := range t.indexed {
			if seen[key] {
				continue
			}
			seen[key] = true
			qc, _ := quote(key)
			idx, err := quote(name + "_" + key + "_idx")
			if err != nil {
				return nil, err
			}
			out["200_index_"+name+"_"+key] = fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx, qt, qc)
		}
	}
	return out, nil
}

// MigrateTables создаёт таблицы данных, описанные конфигурацией форм.
// Существующие таблицы не меняются.
func (s *Store) MigrateTables(ctx context.Context, configs []meta.MasterConfig) error {
	ddl, err := GenerateTableDDL(configs)
	if err != nil {
		return err
	}
	return ApplyDDL(ctx, s.db, ddl)
}
