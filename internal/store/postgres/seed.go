package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"formdeck/internal/meta"
	"formdeck/pkg/logger"
)

func upsertSuffix(columns []string) string {
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == "id" {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return "ON CONFLICT (id) DO UPDATE SET " + strings.Join(sets, ", ")
}

// SeedConfig записывает формы, секции и поля одной транзакцией (upsert по id).
func (s *Store) SeedConfig(ctx context.Context, configs []meta.MasterConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range configs {
		form, sections, fields := c.Split()
		if err := s.upsertForm(ctx, tx, form); err != nil {
			return err
		}
		for _, sec := range sections {
			if err := s.upsertSection(ctx, tx, sec); err != nil {
				return err
			}
		}
		for _, f := range fields {
			if err := s.upsertField(ctx, tx, f); err != nil {
				return err
			}
		}
		logger.Info(ctx, "form seeded", "slug", form.Slug, "sections", len(sections), "fields", len(fields))
	}
	return tx.Commit()
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, b sq.InsertBuilder, what string) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", what, err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return translate("seed "+what, err)
	}
	return nil
}

func (s *Store) upsertForm(ctx context.Context, tx *sql.Tx, f meta.Form) error {
	b := s.sb.Insert(formsTable).Columns(formColumns...).
		Values(f.ID, f.Slug, f.Title, f.PrimaryTable, f.FormType, f.Datatable).
		Suffix(upsertSuffix(formColumns))
	return s.exec(ctx, tx, b, "form "+f.Slug)
}

func (s *Store) upsertSection(ctx context.Context, tx *sql.Tx, sec meta.Section) error {
	b := s.sb.Insert(sectionsTable).Columns(sectionColumns...).
		Values(sec.ID, sec.FormID, sec.Title, sec.TableName, sec.ForeignKeyToParent, sec.Visibility, sec.SortOrder).
		Suffix(upsertSuffix(sectionColumns))
	return s.exec(ctx, tx, b, "section "+sec.ID)
}

func (s *Store) upsertField(ctx context.Context, tx *sql.Tx, f meta.Field) error {
	rowNo, span := f.RowNo, f.ColSpan
	if rowNo <= 0 {
		rowNo = 1
	}
	if span <= 0 {
		span = 6
	}
	b := s.sb.Insert(fieldsTable).Columns(fieldColumns...).
		Values(f.ID, f.SectionID, f.Label, f.Column, f.Type(), f.Options, f.Rules, f.SortOrder, rowNo, span).
		Suffix(upsertSuffix(fieldColumns))
	return s.exec(ctx, tx, b, "field "+f.ID)
}

// SeedRows вставляет строки, пропуская уже существующие id.
func (s *Store) SeedRows(ctx context.Context, table string, rows []meta.Row) (int, error) {
	qt, err := quoteTable(table)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rows {
		cols, vals, err := sortedPayload(r)
		if err != nil {
			return n, err
		}
		query, args, err := s.sb.Insert(qt).Columns(cols...).Values(vals...).
			Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return n, fmt.Errorf("build insert: %w", err)
		}
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return n, translate("seed "+meta.CleanTable(table), err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			n++
		}
	}
	return n, nil
}
