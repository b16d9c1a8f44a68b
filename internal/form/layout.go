package form

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"formdeck/internal/grid"
	"formdeck/internal/meta"
)

// Widget kinds.
const (
	KindInput    = "input"
	KindTextarea = "textarea"
	KindSelect   = "select"
	KindLookup   = "lookup"
	KindCheckbox = "checkbox"
)

const defaultSpan = 6

var spanClasses = map[int]string{
	1: "col-span-1", 2: "col-span-2", 3: "col-span-3", 4: "col-span-4",
	6: "col-span-6", 8: "col-span-8", 12: "col-span-12",
}

// SpanClass maps col_span to a grid class; unsupported spans fall back to 6.
func SpanClass(span int) string {
	if c, ok := spanClasses[span]; ok {
		return c
	}
	return spanClasses[defaultSpan]
}

type Widget struct {
	Name        string             `json:"name"`
	Label       string             `json:"label"`
	Kind        string             `json:"kind"`
	InputType   string             `json:"input_type"`
	Placeholder string             `json:"placeholder"`
	Value       string             `json:"value"`
	Checked     bool               `json:"checked,omitempty"`
	Required    bool               `json:"required"`
	SpanClass   string             `json:"span_class"`
	Error       string             `json:"error,omitempty"`
	Options     []meta.Option      `json:"options,omitempty"`
	Source      *meta.OptionSource `json:"source,omitempty"`
}

// Selected reports whether opt is the widget's current value.
func (w Widget) Selected(opt meta.Option) bool { return w.Value == opt.Value }

type Row struct {
	No      int      `json:"row_no"`
	Widgets []Widget `json:"widgets"`
}

type SectionView struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Child     bool       `json:"child"`
	Table     string     `json:"table,omitempty"`
	ParentKey string     `json:"parent_key,omitempty"`
	Rows      []Row      `json:"rows,omitempty"`
	Grid      *grid.View `json:"grid,omitempty"`
}

// FieldCount — сколько полей секция показывает: виджеты или колонки таблицы.
func (s SectionView) FieldCount() int {
	if s.Child {
		if s.Grid == nil {
			return 0
		}
		return len(s.Grid.Columns)
	}
	n := 0
	for _, r := range s.Rows {
		n += len(r.Widgets)
	}
	return n
}

type View struct {
	Slug     string        `json:"slug"`
	Title    string        `json:"title"`
	Entity   string        `json:"entity"`
	Edit     bool          `json:"edit"`
	RecordID string        `json:"record_id,omitempty"`
	Sections []SectionView `json:"sections"`
	Errors   FieldErrors   `json:"errors,omitempty"`
}

// Layout строит представление формы. values — текущие значения
// (пустые для создания), errs — ошибки прошлой отправки.
func Layout(cfg meta.MasterConfig, values map[string]any, errs FieldErrors) View {
	v := View{
		Slug:     cfg.Slug,
		Title:    cfg.Title,
		Entity:   cfg.SingularTitle(),
		Sections: make([]SectionView, 0, len(cfg.Sections)),
		Errors:   errs,
	}
	if id, ok := values["id"]; ok && id != nil {
		v.Edit = true
		v.RecordID = grid.Format(id)
	}

	for _, s := range cfg.Sections {
		sv := SectionView{ID: s.ID, Title: s.Title}
		if s.IsChild() {
			sv.Child = true
			sv.Table = meta.CleanTable(s.TableName)
			sv.ParentKey = s.ParentKey()
			g := grid.Build(s.Title, grid.SectionColumns(s), nil, grid.Query{}, "")
			sv.Grid = &g
		} else {
			sv.Rows = layoutRows(s.Fields, values, errs)
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}

func layoutRows(fields []meta.Field, values map[string]any, errs FieldErrors) []Row {
	byRow := map[int][]Widget{}
	for _, f := range fields {
		no := f.RowNo
		if no <= 0 {
			no = 1
		}
		byRow[no] = append(byRow[no], widgetFor(f, values[f.Column], errs[f.Column]))
	}
	nos := make([]int, 0, len(byRow))
	for no := range byRow {
		nos = append(nos, no)
	}
	sort.Ints(nos)

	rows := make([]Row, 0, len(nos))
	for _, no := range nos {
		rows = append(rows, Row{No: no, Widgets: byRow[no]})
	}
	return rows
}

func widgetFor(f meta.Field, value any, errMsg string) Widget {
	label := f.DisplayLabel()
	w := Widget{
		Name:      f.Column,
		Label:     label,
		Kind:      KindInput,
		InputType: meta.InputText,
		Required:  f.Required(),
		SpanClass: SpanClass(f.ColSpan),
		Error:     errMsg,
		Value:     inputValue(value),
	}
	enter := "Enter " + strings.ToLower(label)
	pick := "Select " + strings.ToLower(label)

	switch f.Type() {
	case meta.InputEmail, meta.InputNumber, meta.InputPassword:
		w.InputType = f.Type()
		w.Placeholder = enter
	case meta.InputDate:
		w.InputType = meta.InputDate
		w.Placeholder = pick
	case meta.InputTextarea:
		w.Kind = KindTextarea
		w.Placeholder = enter
	case meta.InputSelect:
		w.Placeholder = pick
		if src, ok := f.DynamicSource(); ok {
			w.Kind = KindLookup
			w.Source = src
		} else {
			w.Kind = KindSelect
			w.Options = f.StaticOptions()
		}
	case meta.InputCheckbox:
		w.Kind = KindCheckbox
		w.InputType = meta.InputCheckbox
		w.Checked = truthy(value)
		w.Value = ""
	default:
		// file и неизвестные типы — обычное текстовое поле
		w.Placeholder = enter
	}
	return w
}

func inputValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(dateLayout)
	case bool:
		return fmt.Sprint(t)
	default:
		return grid.Format(v)
	}
}

// SetOptions подставляет варианты для lookup-поля column.
func (v *View) SetOptions(column string, opts []meta.Option) {
	for si := range v.Sections {
		for ri := range v.Sections[si].Rows {
			ws := v.Sections[si].Rows[ri].Widgets
			for wi := range ws {
				if ws[wi].Name == column {
					ws[wi].Options = opts
				}
			}
		}
	}
}

// Lookups returns the widgets whose options come from another table.
func (v *View) Lookups() []Widget {
	var out []Widget
	for _, s := range v.Sections {
		for _, r := range s.Rows {
			for _, w := range r.Widgets {
				if w.Kind == KindLookup {
					out = append(out, w)
				}
			}
		}
	}
	return out
}

// SetChildRows заполняет вложенную таблицу дочерней секции.
func (v *View) SetChildRows(sectionID string, rows []meta.Row) {
	for i := range v.Sections {
		s := &v.Sections[i]
		if s.ID != sectionID || !s.Child || s.Grid == nil {
			continue
		}
		g := grid.Build(s.Title, s.Grid.Columns, rows, grid.Query{PageSize: len(rows)}, "")
		s.Grid = &g
	}
}
