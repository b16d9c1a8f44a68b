package meta

import (
	"fmt"
	"regexp"
	"strings"
)

type Issue struct {
	Form    string `json:"form"` // slug
	Section string `json:"section,omitempty"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	loc := i.Form
	if i.Section != "" {
		loc += "/" + i.Section
	}
	if i.Field != "" {
		loc += "." + i.Field
	}
	return fmt.Sprintf("%s: %s (%s)", loc, i.Message, i.Code)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s can be used as an unquoted table/column name.
func ValidIdent(s string) bool { return identRe.MatchString(s) }

var allowedSpans = map[int]struct{}{1: {}, 2: {}, 3: {}, 4: {}, 6: {}, 8: {}, 12: {}}

// Lint checks configurations for contradictions the renderer would silently paper over.
func Lint(configs []MasterConfig) []Issue {
	var issues []Issue
	add := func(form, section, field, code, msg string) {
		issues = append(issues, Issue{Form: form, Section: section, Field: field, Code: code, Message: msg})
	}

	seenSlug := map[string]bool{}
	for _, c := range configs {
		slug := c.Slug
		if strings.TrimSpace(slug) == "" {
			add(c.ID, "", "", "slug_empty", "form has no slug")
		} else if seenSlug[slug] {
			add(slug, "", "", "slug_duplicate", "slug is defined more than once")
		}
		seenSlug[slug] = true

		if !ValidIdent(c.CleanTable()) {
			add(slug, "", "", "table_invalid", fmt.Sprintf("primary_table_name %q is not a valid table name", c.PrimaryTable))
		}
		for _, col := range c.Datatable.DefaultColumns {
			if !ValidIdent(col.AccessorKey) {
				add(slug, "", col.AccessorKey, "column_invalid", "datatable column accessorKey is not a valid column name")
			}
		}

		for _, s := range c.Sections {
			if s.IsChild() {
				if !ValidIdent(CleanTable(s.TableName)) {
					add(slug, s.Title, "", "child_table_missing", "child section needs a valid table_name")
				}
				if !ValidIdent(s.ParentKey()) {
					add(slug, s.Title, "", "parent_key_invalid", "foreign_key_to_parent is not a valid column name")
				}
			}

			seenCol := map[string]bool{}
			for _, f := range s.Fields {
				if !ValidIdent(f.Column) {
					add(slug, s.Title, f.Column, "column_invalid", "column_name is not a valid column name")
				}
				if seenCol[f.Column] {
					add(slug, s.Title, f.Column, "column_duplicate", "column appears twice in one section")
				}
				seenCol[f.Column] = true

				if f.InputType != "" && !KnownInput(f.InputType) {
					add(slug, s.Title, f.Column, "input_type_unknown",
						fmt.Sprintf("unknown input_type %q renders as text", f.InputType))
				}
				if f.ColSpan != 0 {
					if _, ok := allowedSpans[f.ColSpan]; !ok {
						add(slug, s.Title, f.Column, "col_span_invalid",
							fmt.Sprintf("col_span %d not in 1,2,3,4,6,8,12", f.ColSpan))
					}
				}
				if f.RowNo < 0 {
					add(slug, s.Title, f.Column, "row_no_invalid", "row_no must be positive")
				}
				if src, ok := f.DynamicSource(); ok {
					if !ValidIdent(src.Table) {
						add(slug, s.Title, f.Column, "option_source_table", "dynamic options need a valid source_table")
					}
					if !ValidIdent(src.ValueColumn) || !ValidIdent(src.LabelColumn) {
						add(slug, s.Title, f.Column, "option_source_column", "dynamic options need valid value_column/label_column")
					}
				}
			}
		}
	}
	return issues
}
