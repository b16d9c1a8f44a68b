package meta

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// Form is one row of the "forms" table: a CRUD screen over a target table.
type Form struct {
	ID           string          `db:"id" json:"id" yaml:"id"`
	Slug         string          `db:"slug" json:"slug" yaml:"slug"`
	Title        string          `db:"form_title" json:"form_title" yaml:"form_title"`
	PrimaryTable string          `db:"primary_table_name" json:"primary_table_name" yaml:"primary_table_name"`
	FormType     string          `db:"form_type" json:"form_type" yaml:"form_type"`
	Datatable    DatatableConfig `db:"datatable_config" json:"datatable_config" yaml:"datatable_config"`
}

// DatatableConfig is the jsonb "datatable_config" column.
type DatatableConfig struct {
	DefaultColumns []Column `json:"default_columns,omitempty" yaml:"default_columns"`
}

// Column describes one table-view column.
type Column struct {
	Header      string `json:"header" yaml:"header"`
	AccessorKey string `json:"accessorKey" yaml:"accessorKey"`
	Type        string `json:"type,omitempty" yaml:"type"`
	Width       string `json:"width,omitempty" yaml:"width"`
}

// Section is one row of "form_sections".
// A non-nil ForeignKeyToParent marks a child section scoped to a parent record.
type Section struct {
	ID                 string     `db:"id" json:"id" yaml:"id"`
	FormID             string     `db:"form_id" json:"form_id" yaml:"form_id"`
	Title              string     `db:"section_title" json:"section_title" yaml:"section_title"`
	TableName          string     `db:"table_name" json:"table_name" yaml:"table_name"`
	ForeignKeyToParent *string    `db:"foreign_key_to_parent" json:"foreign_key_to_parent" yaml:"foreign_key_to_parent"`
	Visibility         StringList `db:"visibility" json:"visibility" yaml:"visibility"`
	SortOrder          *int       `db:"sort_order" json:"sort_order" yaml:"sort_order"`
	Fields             []Field    `db:"-" json:"fields" yaml:"fields"`
}

// Field is one row of "form_fields".
type Field struct {
	ID        string        `db:"id" json:"id" yaml:"id"`
	SectionID string        `db:"section_id" json:"section_id" yaml:"section_id"`
	Label     string        `db:"field_label" json:"field_label" yaml:"field_label"`
	Column    string        `db:"column_name" json:"column_name" yaml:"column_name"`
	InputType string        `db:"input_type" json:"input_type" yaml:"input_type"`
	Options   OptionsConfig `db:"options_config" json:"options_config" yaml:"options_config"`
	Rules     Rules         `db:"validation_rules" json:"validation_rules" yaml:"validation_rules"`
	SortOrder *int          `db:"sort_order" json:"sort_order" yaml:"sort_order"`
	RowNo     int           `db:"row_no" json:"row_no" yaml:"row_no"`
	ColSpan   int           `db:"col_span" json:"col_span" yaml:"col_span"`
}

// OptionsConfig is the jsonb "options_config" column: either a static
// option list or a dynamic source ({type: dynamic, source_table, ...}).
type OptionsConfig struct {
	Type        string   `json:"type,omitempty" yaml:"type"`
	SourceTable string   `json:"source_table,omitempty" yaml:"source_table"`
	ValueColumn string   `json:"value_column,omitempty" yaml:"value_column"`
	LabelColumn string   `json:"label_column,omitempty" yaml:"label_column"`
	Options     []Option `json:"options,omitempty" yaml:"options"`
}

type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// OptionSource names the table a dynamic select reads its options from.
type OptionSource struct {
	Table       string `json:"source_table"`
	ValueColumn string `json:"value_column"`
	LabelColumn string `json:"label_column"`
}

// Rules is the jsonb "validation_rules" column. Only "required" is interpreted.
type Rules map[string]any

// Row is one data record keyed by column name.
type Row = map[string]any

// MasterConfig is a form with its ordered sections and fields.
type MasterConfig struct {
	Form     `yaml:",inline"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Input types understood by the form renderer. Anything else renders as text.
const (
	InputText     = "text"
	InputEmail    = "email"
	InputNumber   = "number"
	InputPassword = "password"
	InputDate     = "date"
	InputTextarea = "textarea"
	InputSelect   = "select"
	InputCheckbox = "checkbox"
	InputFile     = "file"
)

var knownInputs = map[string]struct{}{
	InputText: {}, InputEmail: {}, InputNumber: {}, InputPassword: {}, InputDate: {},
	InputTextarea: {}, InputSelect: {}, InputCheckbox: {}, InputFile: {},
}

// KnownInput reports whether t is an input type with a dedicated widget.
func KnownInput(t string) bool {
	_, ok := knownInputs[strings.ToLower(strings.TrimSpace(t))]
	return ok
}

// CleanTable strips the "public." schema prefix the way the hosted store expects.
func CleanTable(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "public.")
}

func (f Form) CleanTable() string { return CleanTable(f.PrimaryTable) }

// Columns returns the default table-view columns with headers filled in.
func (f Form) Columns() []Column {
	out := make([]Column, 0, len(f.Datatable.DefaultColumns))
	for _, c := range f.Datatable.DefaultColumns {
		if strings.TrimSpace(c.AccessorKey) == "" {
			continue
		}
		if c.Header == "" {
			c.Header = Humanize(c.AccessorKey)
		}
		out = append(out, c)
	}
	return out
}

// SingularTitle is used for "Add <entity>" captions.
// Without a title it falls back to the table name, then to the slug.
func (f Form) SingularTitle() string {
	if strings.TrimSpace(f.Title) != "" {
		return inflect.Singularize(f.Title)
	}
	for _, name := range []string{CleanTable(f.PrimaryTable), f.Slug} {
		if h := Humanize(name); h != "" {
			return inflect.Singularize(h)
		}
	}
	return ""
}

// IsChild reports whether the section shows records tied to a parent.
func (s Section) IsChild() bool {
	return s.ForeignKeyToParent != nil && strings.TrimSpace(*s.ForeignKeyToParent) != ""
}

// ParentKey returns the foreign key column of a child section.
func (s Section) ParentKey() string {
	if s.ForeignKeyToParent == nil {
		return ""
	}
	return strings.TrimSpace(*s.ForeignKeyToParent)
}

// Name is the column the field binds to.
func (f Field) Name() string { return f.Column }

// DisplayLabel returns the configured label or a humanized column name.
func (f Field) DisplayLabel() string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return Humanize(f.Column)
}

// Type returns the lower-cased input type, defaulting to text.
func (f Field) Type() string {
	t := strings.ToLower(strings.TrimSpace(f.InputType))
	if t == "" {
		return InputText
	}
	return t
}

// Required reads validation_rules.required.
func (f Field) Required() bool {
	if f.Rules == nil {
		return false
	}
	switch v := f.Rules["required"].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1"
	default:
		return false
	}
}

// DynamicSource returns the lookup table of a dynamic select.
func (f Field) DynamicSource() (*OptionSource, bool) {
	if !strings.EqualFold(f.Options.Type, "dynamic") {
		return nil, false
	}
	src := &OptionSource{
		Table:       CleanTable(f.Options.SourceTable),
		ValueColumn: strings.TrimSpace(f.Options.ValueColumn),
		LabelColumn: strings.TrimSpace(f.Options.LabelColumn),
	}
	if src.ValueColumn == "" {
		src.ValueColumn = "id"
	}
	if src.LabelColumn == "" {
		src.LabelColumn = src.ValueColumn
	}
	return src, true
}

// StaticOptions returns options_config.options.
func (f Field) StaticOptions() []Option {
	return f.Options.Options
}

// Humanize turns a column name into a label: "first_name" -> "First name".
// A name with no letters or digits besides a "_id" suffix comes back trimmed
// but otherwise as is.
func Humanize(column string) string {
	column = strings.TrimSpace(column)
	rest := column
	if i := strings.LastIndex(rest, "_id"); i >= 0 {
		rest = rest[:i] + rest[i+len("_id"):]
	}
	if strings.IndexFunc(rest, isWordRune) < 0 {
		return column
	}
	return inflect.Humanize(column)
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// MainFields returns the fields of all non-child sections, in order.
func (c MasterConfig) MainFields() []Field {
	var out []Field
	for _, s := range c.Sections {
		if s.IsChild() {
			continue
		}
		out = append(out, s.Fields...)
	}
	return out
}

// FieldByColumn finds a main-section field by column name.
func (c MasterConfig) FieldByColumn(column string) (Field, bool) {
	for _, f := range c.MainFields() {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// ChildSections returns sections tied to a parent record.
func (c MasterConfig) ChildSections() []Section {
	var out []Section
	for _, s := range c.Sections {
		if s.IsChild() {
			out = append(out, s)
		}
	}
	return out
}
