package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdeck/pkg/logger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New("test")
	c.log = logger.Nop()
	var out bytes.Buffer
	c.rootCmd.SetOut(&out)
	c.rootCmd.SetErr(&out)
	c.rootCmd.SetArgs(args)
	err := c.Run()
	return out.String(), err
}

func TestLint(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
forms:
  - slug: departments
    primary_table_name: departments
    sections:
      - section_title: Main
        fields: [{ column_name: name }]
data:
  departments: [{ id: d1, name: Ops }]
`), 0o644))

	out, err := run(t, "lint", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 1 forms, 1 seed tables")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(`
forms:
  - slug: broken
    primary_table_name: "drop table"
    sections:
      - section_title: Main
        fields: [{ column_name: name, col_span: 5 }]
`), 0o644))
	out, err = run(t, "lint", dir)
	require.Error(t, err)
	assert.Contains(t, out, "table_invalid")
	assert.Contains(t, out, "col_span_invalid")
}

func TestLint_Args(t *testing.T) {
	_, err := run(t, "lint")
	assert.Error(t, err)

	_, err = run(t, "lint", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestMigrate_NeedsDB(t *testing.T) {
	t.Setenv("FORMDECK_DB_URL", "")
	_, err := run(t, "migrate", "--db", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db")
}

func TestDDL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(`
forms:
  - slug: departments
    primary_table_name: public.departments
    sections:
      - section_title: Main
        fields:
          - { column_name: name }
          - { column_name: is_active, input_type: checkbox }
`), 0o644))

	out, err := run(t, "ddl", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `CREATE TABLE IF NOT EXISTS "departments"`)
	assert.Contains(t, out, `"is_active" boolean`)
}
