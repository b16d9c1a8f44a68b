package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdeck/internal/apperror"
	"formdeck/internal/meta"
	"formdeck/internal/store"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestFormBySlug(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, slug, form_title, primary_table_name, form_type, datatable_config FROM forms WHERE slug = $1 LIMIT 1`).
		WithArgs("employees").
		WillReturnRows(sqlmock.NewRows(formColumns).AddRow(
			"f1", "employees", "Employees", "public.employees", "master",
			`{"default_columns":[{"header":"Name","accessorKey":"first_name"}]}`,
		))

	f, err := s.FormBySlug(context.Background(), "employees")
	require.NoError(t, err)
	assert.Equal(t, "Employees", f.Title)
	assert.Equal(t, "employees", f.CleanTable())
	require.Len(t, f.Datatable.DefaultColumns, 1)
	assert.Equal(t, "first_name", f.Datatable.DefaultColumns[0].AccessorKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormBySlug_NotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, slug, form_title, primary_table_name, form_type, datatable_config FROM forms WHERE slug = $1 LIMIT 1`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(formColumns))

	_, err := s.FormBySlug(context.Background(), "ghost")
	assert.True(t, apperror.IsNotFound(err))
}

func TestSectionsAndFields(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, form_id, section_title, table_name, foreign_key_to_parent, visibility, sort_order FROM form_sections WHERE form_id = $1 ORDER BY sort_order NULLS LAST, id`).
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(sectionColumns).
			AddRow("s1", "f1", "Basic", "employees", nil, `["form"]`, int64(1)).
			AddRow("s2", "f1", "Qualifications", "employee_qualifications", "employee_id", nil, nil))

	sections, err := s.Sections(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.False(t, sections[0].IsChild())
	assert.Equal(t, meta.StringList{"form"}, sections[0].Visibility)
	assert.Equal(t, 1, *sections[0].SortOrder)
	assert.True(t, sections[1].IsChild())
	assert.Nil(t, sections[1].SortOrder)

	mock.ExpectQuery(`SELECT id, section_id, field_label, column_name, input_type, options_config, validation_rules, sort_order, row_no, col_span FROM form_fields WHERE section_id IN ($1,$2) ORDER BY sort_order NULLS LAST, id`).
		WithArgs("s1", "s2").
		WillReturnRows(sqlmock.NewRows(fieldColumns).
			AddRow("x1", "s1", "Department", "department_id", "select",
				`{"type":"dynamic","source_table":"departments","value_column":"id","label_column":"name"}`,
				`{"required":true}`, int64(1), int64(1), int64(6)))

	fields, err := s.Fields(ctx, meta.SectionIDs(sections))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Required())
	src, ok := fields[0].DynamicSource()
	require.True(t, ok)
	assert.Equal(t, "departments", src.Table)

	empty, err := s.Fields(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT * FROM "picklists" WHERE "type" = $1 AND "is_active" IS DISTINCT FROM false ORDER BY "sort_order" ASC NULLS LAST`).
		WithArgs("gender").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "value"}).
			AddRow("p2", "gender", "F").
			AddRow("p1", "gender", "M"))

	rows, err := s.List(context.Background(), "public.picklists", store.Query{
		Eq:       map[string]any{"type": "gender"},
		NotFalse: []string{"is_active"},
		OrderBy:  []store.Order{{Column: "sort_order"}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "F", rows[0]["value"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_RejectsBadIdentifiers(t *testing.T) {
	s, mock := newMock(t)

	_, err := s.List(context.Background(), `users"; DROP TABLE forms; --`, store.Query{})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = s.List(context.Background(), "users", store.Query{Eq: map[string]any{"a b": 1}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT * FROM "employees" WHERE "id" = $1 LIMIT 1`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("e1", "Ada"))
	row, err := s.Get(ctx, "employees", "e1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", row["name"])

	mock.ExpectQuery(`SELECT * FROM "employees" WHERE "id" = $1 LIMIT 1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	_, err = s.Get(ctx, "employees", "nope")
	assert.True(t, apperror.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO "departments" ("company_id","name") VALUES ($1,$2) RETURNING *`).
		WithArgs("c1", "Ops").
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "name"}).AddRow("d9", "c1", "Ops"))

	row, err := s.Insert(context.Background(), "public.departments", map[string]any{"name": "Ops", "company_id": "c1"})
	require.NoError(t, err)
	assert.Equal(t, "d9", row["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_UniqueViolation(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO "departments" ("name") VALUES ($1) RETURNING *`).
		WithArgs("Ops").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "departments_name_key"})

	_, err := s.Insert(context.Background(), "departments", map[string]any{"name": "Ops"})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.Equal(t, "departments_name_key", appErr.Details["constraint"])
}

func TestUpdate(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`UPDATE "departments" SET "name" = $1 WHERE "id" = $2 RETURNING *`).
		WithArgs("Operations", "d9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("d9", "Operations"))
	row, err := s.Update(ctx, "departments", "d9", map[string]any{"name": "Operations"})
	require.NoError(t, err)
	assert.Equal(t, "Operations", row["name"])

	mock.ExpectQuery(`UPDATE "departments" SET "name" = $1 WHERE "id" = $2 RETURNING *`).
		WithArgs("X", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	_, err = s.Update(ctx, "departments", "missing", map[string]any{"name": "X"})
	assert.True(t, apperror.IsNotFound(err))

	mock.ExpectQuery(`UPDATE "departments" SET "name" = $1 WHERE "id" = $2 RETURNING *`).
		WithArgs("Y", "d9").
		WillReturnError(sql.ErrConnDone)
	_, err = s.Update(ctx, "departments", "d9", map[string]any{"name": "Y"})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDatabase, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptionsAndDistinct(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT "id"::text AS value, COALESCE(NULLIF("name"::text, ''), "id"::text) AS label FROM "departments" WHERE "id" IS NOT NULL ORDER BY label`).
		WillReturnRows(sqlmock.NewRows([]string{"value", "label"}).
			AddRow("d1", "Engineering").
			AddRow("d3", "d3"))
	opts, err := s.Options(ctx, meta.OptionSource{Table: "departments", ValueColumn: "id", LabelColumn: "name"})
	require.NoError(t, err)
	assert.Equal(t, []meta.Option{{Value: "d1", Label: "Engineering"}, {Value: "d3", Label: "d3"}}, opts)

	mock.ExpectQuery(`SELECT DISTINCT "type"::text AS value FROM "picklists" WHERE "type" IS NOT NULL AND "is_active" IS DISTINCT FROM false ORDER BY value`).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("gender").AddRow("title"))
	types, err := s.Distinct(ctx, "picklists", "type", store.Query{NotFalse: []string{"is_active"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gender", "title"}, types)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := New(db)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS forms`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS form_sections`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS form_sections_form_id_idx`).
		WillReturnError(&pgconn.PgError{Code: "42P07", Message: "relation already exists"})
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS form_fields`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS form_fields_section_id_idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS picklists`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_Fails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS forms`).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied"})

	err = New(db).Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "01_forms")
}

func TestSeedConfig(t *testing.T) {
	s, mock := newMock(t)
	b, err := meta.Parse([]byte(`
forms:
  - slug: products
    primary_table_name: products
    sections:
      - section_title: Main
        fields:
          - { column_name: sku }
`))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO forms (id,slug,form_title,primary_table_name,form_type,datatable_config) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, form_title = EXCLUDED.form_title, primary_table_name = EXCLUDED.primary_table_name, form_type = EXCLUDED.form_type, datatable_config = EXCLUDED.datatable_config`).
		WithArgs("products", "products", "", "products", "", `{}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO form_sections (id,form_id,section_title,table_name,foreign_key_to_parent,visibility,sort_order) VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (id) DO UPDATE SET form_id = EXCLUDED.form_id, section_title = EXCLUDED.section_title, table_name = EXCLUDED.table_name, foreign_key_to_parent = EXCLUDED.foreign_key_to_parent, visibility = EXCLUDED.visibility, sort_order = EXCLUDED.sort_order`).
		WithArgs("products.s1", "products", "Main", "", nil, `[]`, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO form_fields (id,section_id,field_label,column_name,input_type,options_config,validation_rules,sort_order,row_no,col_span) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) ON CONFLICT (id) DO UPDATE SET section_id = EXCLUDED.section_id, field_label = EXCLUDED.field_label, column_name = EXCLUDED.column_name, input_type = EXCLUDED.input_type, options_config = EXCLUDED.options_config, validation_rules = EXCLUDED.validation_rules, sort_order = EXCLUDED.sort_order, row_no = EXCLUDED.row_no, col_span = EXCLUDED.col_span`).
		WithArgs("products.s1.f1", "products.s1", "", "sku", "text", `{}`, `{}`, 1, 1, 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SeedConfig(context.Background(), b.Forms))
	assert.NoError(t, mock.ExpectationsWereMet())
}
