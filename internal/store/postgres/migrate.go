package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"formdeck/pkg/logger"
)

// DDL метаданных форм и справочника picklists. Ключ задаёт порядок применения.
var ddl = map[string]string{
	"01_forms": `
CREATE TABLE IF NOT EXISTS forms (
	id                 text PRIMARY KEY,
	slug               text NOT NULL UNIQUE,
	form_title         text NOT NULL DEFAULT '',
	primary_table_name text NOT NULL,
	form_type          text NOT NULL DEFAULT '',
	datatable_config   jsonb NOT NULL DEFAULT '{}'::jsonb
)`,
	"02_form_sections": `
CREATE TABLE IF NOT EXISTS form_sections (
	id                    text PRIMARY KEY,
	form_id               text NOT NULL REFERENCES forms(id) ON DELETE CASCADE,
	section_title         text NOT NULL DEFAULT '',
	table_name            text NOT NULL DEFAULT '',
	foreign_key_to_parent text,
	visibility            jsonb NOT NULL DEFAULT '[]'::jsonb,
	sort_order            integer
)`,
	"03_form_sections_idx": `CREATE INDEX IF NOT EXISTS form_sections_form_id_idx ON form_sections (form_id)`,
	"04_form_fields": `
CREATE TABLE IF NOT EXISTS form_fields (
	id               text PRIMARY KEY,
	section_id       text NOT NULL REFERENCES form_sections(id) ON DELETE CASCADE,
	field_label      text NOT NULL DEFAULT '',
	column_name      text NOT NULL,
	input_type       text NOT NULL DEFAULT 'text',
	options_config   jsonb NOT NULL DEFAULT '{}'::jsonb,
	validation_rules jsonb NOT NULL DEFAULT '{}'::jsonb,
	sort_order       integer,
	row_no           integer NOT NULL DEFAULT 1,
	col_span         integer NOT NULL DEFAULT 6
)`,
	"05_form_fields_idx": `CREATE INDEX IF NOT EXISTS form_fields_section_id_idx ON form_fields (section_id)`,
	"06_picklists": `
CREATE TABLE IF NOT EXISTS picklists (
	id         text PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id text,
	type       text NOT NULL,
	value      text NOT NULL,
	label      text,
	head       text,
	sort_order integer,
	is_active  boolean DEFAULT true,
	created_at timestamptz NOT NULL DEFAULT now()
)`,
}

// already exists: duplicate_object / duplicate_table
var skippable = map[string]bool{"42710": true, "42P07": true}

// Migrate применяет idempotent DDL по порядку ключей.
func (s *Store) Migrate(ctx context.Context) error {
	return ApplyDDL(ctx, s.db, ddl)
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ApplyDDL выполняет map[name]sql в порядке имён.
func ApplyDDL(ctx context.Context, db Execer, statements map[string]string) error {
	log := logger.FromContext(ctx).WithComponent("migrate")

	keys := make([]string, 0, len(statements))
	for k := range statements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sqlText := strings.TrimSpace(statements[k])
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && skippable[pgErr.Code] {
				log.Infow("DDL skipped (already exists)", "step", k, "code", pgErr.Code, "message", pgErr.Message)
				continue
			}
			return fmt.Errorf("DDL %s failed: %w", k, err)
		}
		log.Debugw("DDL applied", "step", k)
	}
	return nil
}
