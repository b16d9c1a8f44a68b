package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"formdeck/internal/apperror"
	"formdeck/internal/meta"
	"formdeck/internal/store"
)

const (
	formsTable    = "forms"
	sectionsTable = "form_sections"
	fieldsTable   = "form_fields"
)

var (
	formColumns    = []string{"id", "slug", "form_title", "primary_table_name", "form_type", "datatable_config"}
	sectionColumns = []string{"id", "form_id", "section_title", "table_name", "foreign_key_to_parent", "visibility", "sort_order"}
	fieldColumns   = []string{"id", "section_id", "field_label", "column_name", "input_type", "options_config",
		"validation_rules", "sort_order", "row_no", "col_span"}
)

type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperror.NewDatabase("ping", err)
	}
	return nil
}

// quote проверяет имя и берёт его в двойные кавычки.
func quote(name string) (string, error) {
	if !meta.ValidIdent(name) {
		return "", apperror.NewValidation(fmt.Sprintf("invalid identifier %q", name))
	}
	return `"` + name + `"`, nil
}

func quoteTable(name string) (string, error) { return quote(meta.CleanTable(name)) }

// ==== конфигурация форм ====

func (s *Store) FormBySlug(ctx context.Context, slug string) (meta.Form, error) {
	query, args, err := s.sb.Select(formColumns...).From(formsTable).
		Where(sq.Eq{"slug": slug}).Limit(1).ToSql()
	if err != nil {
		return meta.Form{}, fmt.Errorf("build query: %w", err)
	}
	var f meta.Form
	if err := sqlscan.Get(ctx, s.db, &f, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return meta.Form{}, apperror.NewNotFound("form", slug)
		}
		return meta.Form{}, apperror.NewDatabase("form by slug", err)
	}
	return f, nil
}

func (s *Store) Sections(ctx context.Context, formID string) ([]meta.Section, error) {
	query, args, err := s.sb.Select(sectionColumns...).From(sectionsTable).
		Where(sq.Eq{"form_id": formID}).OrderBy("sort_order NULLS LAST", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []meta.Section
	if err := sqlscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, apperror.NewDatabase("form sections", err)
	}
	return out, nil
}

func (s *Store) Fields(ctx context.Context, sectionIDs []string) ([]meta.Field, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}
	query, args, err := s.sb.Select(fieldColumns...).From(fieldsTable).
		Where(sq.Eq{"section_id": sectionIDs}).OrderBy("sort_order NULLS LAST", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []meta.Field
	if err := sqlscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, apperror.NewDatabase("form fields", err)
	}
	return out, nil
}

// ==== строки данных ====

func (s *Store) applyQuery(b sq.SelectBuilder, q store.Query) (sq.SelectBuilder, error) {
	cols := make([]string, 0, len(q.Eq))
	for c := range q.Eq {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		qc, err := quote(c)
		if err != nil {
			return b, err
		}
		b = b.Where(sq.Eq{qc: q.Eq[c]})
	}
	for _, c := range q.NotFalse {
		qc, err := quote(c)
		if err != nil {
			return b, err
		}
		b = b.Where(qc + " IS DISTINCT FROM false")
	}
	for _, o := range q.OrderBy {
		qc, err := quote(o.Column)
		if err != nil {
			return b, err
		}
		if o.Desc {
			b = b.OrderBy(qc + " DESC NULLS LAST")
		} else {
			b = b.OrderBy(qc + " ASC NULLS LAST")
		}
	}
	return b, nil
}

func (s *Store) List(ctx context.Context, table string, q store.Query) ([]meta.Row, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	b, err := s.applyQuery(s.sb.Select("*").From(qt), q)
	if err != nil {
		return nil, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := []meta.Row{}
	if err := sqlscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, apperror.NewDatabase("list "+meta.CleanTable(table), err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, table, id string) (meta.Row, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Select("*").From(qt).Where(sq.Eq{`"id"`: id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	row := meta.Row{}
	if err := sqlscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, apperror.NewNotFound(meta.CleanTable(table), id)
		}
		return nil, apperror.NewDatabase("get "+meta.CleanTable(table), err)
	}
	return row, nil
}

// sortedPayload: колонки в стабильном порядке, чтобы SQL был детерминированным.
func sortedPayload(payload map[string]any) ([]string, []any, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cols := make([]string, 0, len(keys))
	vals := make([]any, 0, len(keys))
	for _, k := range keys {
		qc, err := quote(k)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, qc)
		vals = append(vals, payload[k])
	}
	return cols, vals, nil
}

func (s *Store) Insert(ctx context.Context, table string, payload map[string]any) (meta.Row, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	cols, vals, err := sortedPayload(payload)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.Insert(qt).Columns(cols...).Values(vals...).Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}
	row := meta.Row{}
	if err := sqlscan.Get(ctx, s.db, &row, query, args...); err != nil {
		return nil, translate("insert "+meta.CleanTable(table), err)
	}
	return row, nil
}

func (s *Store) Update(ctx context.Context, table, id string, payload map[string]any) (meta.Row, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	cols, vals, err := sortedPayload(payload)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return s.Get(ctx, table, id)
	}
	b := s.sb.Update(qt)
	for i, c := range cols {
		b = b.Set(c, vals[i])
	}
	query, args, err := b.Where(sq.Eq{`"id"`: id}).Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}
	row := meta.Row{}
	if err := sqlscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, apperror.NewNotFound(meta.CleanTable(table), id)
		}
		return nil, translate("update "+meta.CleanTable(table), err)
	}
	return row, nil
}

type optionRow struct {
	Value string `db:"value"`
	Label string `db:"label"`
}

// Options: value/label как text, label пустой или NULL → value, сортировка по label.
func (s *Store) Options(ctx context.Context, src meta.OptionSource) ([]meta.Option, error) {
	qt, err := quoteTable(src.Table)
	if err != nil {
		return nil, err
	}
	vc, err := quote(src.ValueColumn)
	if err != nil {
		return nil, err
	}
	lc, err := quote(src.LabelColumn)
	if err != nil {
		return nil, err
	}
	query, args, err := s.sb.
		Select(vc+"::text AS value", fmt.Sprintf("COALESCE(NULLIF(%s::text, ''), %s::text) AS label", lc, vc)).
		From(qt).Where(vc + " IS NOT NULL").OrderBy("label").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []optionRow
	if err := sqlscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, apperror.NewDatabase("options "+src.Table, err)
	}
	out := make([]meta.Option, 0, len(rows))
	for _, r := range rows {
		out = append(out, meta.Option{Value: r.Value, Label: r.Label})
	}
	return out, nil
}

func (s *Store) Distinct(ctx context.Context, table, column string, q store.Query) ([]string, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return nil, err
	}
	qc, err := quote(column)
	if err != nil {
		return nil, err
	}
	b, err := s.applyQuery(
		s.sb.Select(qc+"::text AS value").Distinct().From(qt).Where(qc+" IS NOT NULL").OrderBy("value"),
		store.Query{Eq: q.Eq, NotFalse: q.NotFalse},
	)
	if err != nil {
		return nil, err
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := []string{}
	if err := sqlscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, apperror.NewDatabase("distinct "+meta.CleanTable(table), err)
	}
	return out, nil
}
