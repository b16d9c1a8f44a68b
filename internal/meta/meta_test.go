package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

func TestAssemble_GroupsAndOrders(t *testing.T) {
	form := Form{ID: "f1", Slug: "employees"}
	sections := []Section{
		{ID: "s2", FormID: "f1", Title: "Second", SortOrder: intp(2)},
		{ID: "s3", FormID: "f1", Title: "Unordered"},
		{ID: "s1", FormID: "f1", Title: "First", SortOrder: intp(1)},
	}
	fields := []Field{
		{ID: "a", SectionID: "s1", Column: "last_name", SortOrder: intp(2)},
		{ID: "b", SectionID: "s2", Column: "email", SortOrder: intp(1)},
		{ID: "c", SectionID: "s1", Column: "first_name", SortOrder: intp(1)},
		{ID: "d", SectionID: "s1", Column: "notes"},
		{ID: "e", SectionID: "missing", Column: "orphan"},
	}

	cfg := Assemble(form, sections, fields)
	require.Len(t, cfg.Sections, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, SectionIDs(cfg.Sections))

	var cols []string
	for _, f := range cfg.Sections[0].Fields {
		cols = append(cols, f.Column)
	}
	assert.Equal(t, []string{"first_name", "last_name", "notes"}, cols)
	assert.Len(t, cfg.Sections[1].Fields, 1)
	assert.Empty(t, cfg.Sections[2].Fields)
}

func TestField_Required(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		want  bool
	}{
		{"nil", nil, false},
		{"bool true", Rules{"required": true}, true},
		{"bool false", Rules{"required": false}, false},
		{"string true", Rules{"required": "true"}, true},
		{"string 1", Rules{"required": "1"}, true},
		{"string yes", Rules{"required": "yes"}, false},
		{"number", Rules{"required": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Field{Rules: tt.rules}.Required())
		})
	}
}

func TestField_DynamicSource(t *testing.T) {
	f := Field{Options: OptionsConfig{Type: "dynamic", SourceTable: "public.departments", ValueColumn: "id", LabelColumn: "name"}}
	src, ok := f.DynamicSource()
	require.True(t, ok)
	assert.Equal(t, "departments", src.Table)
	assert.Equal(t, "id", src.ValueColumn)
	assert.Equal(t, "name", src.LabelColumn)

	f = Field{Options: OptionsConfig{Type: "dynamic", SourceTable: "grades", ValueColumn: "code"}}
	src, ok = f.DynamicSource()
	require.True(t, ok)
	assert.Equal(t, "code", src.LabelColumn)

	_, ok = Field{Options: OptionsConfig{Options: []Option{{Value: "a", Label: "A"}}}}.DynamicSource()
	assert.False(t, ok)
}

func TestLabelsAndTables(t *testing.T) {
	assert.Equal(t, "First name", Field{Column: "first_name"}.DisplayLabel())
	assert.Equal(t, "Given", Field{Column: "first_name", Label: "Given"}.DisplayLabel())
	assert.Equal(t, "employees", Form{PrimaryTable: "public.employees"}.CleanTable())
	assert.Equal(t, InputText, Field{}.Type())
	assert.Equal(t, InputSelect, Field{InputType: " Select "}.Type())

	cols := Form{Datatable: DatatableConfig{DefaultColumns: []Column{
		{AccessorKey: "first_name"},
		{Header: "Mail", AccessorKey: "email"},
		{Header: "Broken"},
	}}}.Columns()
	require.Len(t, cols, 2)
	assert.Equal(t, "First name", cols[0].Header)
	assert.Equal(t, "Mail", cols[1].Header)
}

func TestSection_Child(t *testing.T) {
	main := Section{}
	child := Section{ForeignKeyToParent: strp(" employee_id ")}
	blank := Section{ForeignKeyToParent: strp("  ")}

	assert.False(t, main.IsChild())
	assert.True(t, child.IsChild())
	assert.Equal(t, "employee_id", child.ParentKey())
	assert.False(t, blank.IsChild())

	cfg := MasterConfig{Sections: []Section{
		{Fields: []Field{{Column: "name"}}},
		{ForeignKeyToParent: strp("employee_id"), Fields: []Field{{Column: "degree"}}},
	}}
	assert.Len(t, cfg.MainFields(), 1)
	assert.Len(t, cfg.ChildSections(), 1)
	_, ok := cfg.FieldByColumn("degree")
	assert.False(t, ok)
}

const employeesYAML = `
forms:
  - slug: employees
    form_title: Employees
    primary_table_name: public.employees
    datatable_config:
      default_columns:
        - { header: Name, accessorKey: first_name }
    sections:
      - section_title: Basic
        table_name: employees
        fields:
          - { field_label: First name, column_name: first_name, validation_rules: { required: true } }
          - { column_name: email, input_type: email, row_no: 2, col_span: 12 }
      - section_title: Qualifications
        table_name: employee_qualifications
        foreign_key_to_parent: employee_id
        fields:
          - { column_name: degree }
data:
  public.employees:
    - { id: e1, first_name: Ada }
`

func TestParse_DerivesIDs(t *testing.T) {
	b, err := Parse([]byte(employeesYAML))
	require.NoError(t, err)
	require.Len(t, b.Forms, 1)

	cfg := b.Forms[0]
	assert.Equal(t, "employees", cfg.ID)
	require.Len(t, cfg.Sections, 2)
	assert.Equal(t, "employees.s1", cfg.Sections[0].ID)
	assert.Equal(t, "employees", cfg.Sections[0].FormID)
	assert.Equal(t, "employees.s1.f2", cfg.Sections[0].Fields[1].ID)
	assert.Equal(t, "employees.s1", cfg.Sections[0].Fields[1].SectionID)
	assert.Equal(t, 2, *cfg.Sections[1].SortOrder)
	assert.True(t, cfg.Sections[0].Fields[0].Required())
	assert.True(t, cfg.Sections[1].IsChild())

	form, sections, fields := cfg.Split()
	assert.Equal(t, "employees", form.Slug)
	assert.Len(t, sections, 2)
	assert.Len(t, fields, 3)
	assert.Nil(t, sections[0].Fields)

	again := Assemble(form, sections, fields)
	assert.Equal(t, cfg.Sections[0].Fields, again.Sections[0].Fields)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employees.yaml"), []byte(employeesYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	b, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"employees"}, b.Slugs())
	assert.Len(t, b.Data["employees"], 1)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dup.yml"), []byte(employeesYAML), 0o644))
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate form")
}

func TestLint(t *testing.T) {
	b, err := Parse([]byte(employeesYAML))
	require.NoError(t, err)
	assert.Empty(t, Lint(b.Forms))

	bad := MasterConfig{
		Form: Form{Slug: "broken", PrimaryTable: ""},
		Sections: []Section{
			{Title: "Main", Fields: []Field{
				{Column: "name", InputType: "colour"},
				{Column: "name", ColSpan: 5},
				{Column: "dept", Options: OptionsConfig{Type: "dynamic"}},
			}},
			{Title: "Kids", ForeignKeyToParent: strp("parent_id")},
		},
	}
	codes := map[string]bool{}
	for _, is := range Lint([]MasterConfig{bad}) {
		codes[is.Code] = true
		assert.Equal(t, "broken", is.Form)
	}
	for _, want := range []string{
		"table_invalid", "input_type_unknown", "column_duplicate",
		"col_span_invalid", "option_source_table", "child_table_missing",
	} {
		assert.True(t, codes[want], want)
	}

	dup := Lint([]MasterConfig{b.Forms[0], b.Forms[0]})
	require.Len(t, dup, 1)
	assert.Equal(t, "slug_duplicate", dup[0].Code)
}

func TestJSONColumns_ScanValue(t *testing.T) {
	var oc OptionsConfig
	require.NoError(t, oc.Scan([]byte(`{"type":"dynamic","source_table":"departments","value_column":"id","label_column":"name"}`)))
	assert.Equal(t, "departments", oc.SourceTable)

	var r Rules
	require.NoError(t, r.Scan(`{"required":true}`))
	assert.True(t, Field{Rules: r}.Required())

	var l StringList
	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)
	v, err := l.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var d DatatableConfig
	require.Error(t, d.Scan(42))
}

func TestHumanize_DegenerateNames(t *testing.T) {
	assert.Equal(t, "Department", Humanize("department_id"))
	assert.Equal(t, "", Humanize(""))
	assert.Equal(t, "", Humanize("   "))
	assert.Equal(t, "_id", Humanize("_id"))
	assert.Equal(t, "__", Humanize("__"))

	assert.Equal(t, "_id", Field{Column: "_id"}.DisplayLabel())
	assert.Equal(t, "", Field{}.DisplayLabel())

	assert.Equal(t, "Product", Form{Slug: "products", PrimaryTable: "public."}.SingularTitle())
	assert.Equal(t, "", Form{PrimaryTable: "public."}.SingularTitle())

	f := Form{Datatable: DatatableConfig{DefaultColumns: []Column{{AccessorKey: "  "}, {AccessorKey: "name"}}}}
	assert.Equal(t, []Column{{Header: "Name", AccessorKey: "name"}}, f.Columns())
}
