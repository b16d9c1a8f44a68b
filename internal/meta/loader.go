package meta

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle is the content of a configuration directory: form definitions plus
// optional seed rows per table.
type Bundle struct {
	Forms []MasterConfig              `yaml:"forms"`
	Data  map[string][]map[string]any `yaml:"data"`
}

// Slugs returns the form slugs in sorted order.
func (b *Bundle) Slugs() []string {
	out := make([]string, 0, len(b.Forms))
	for _, f := range b.Forms {
		out = append(out, f.Slug)
	}
	sort.Strings(out)
	return out
}

// ParseFile reads one YAML file into a Bundle and fills derived ids.
func ParseFile(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML configuration and fills derived ids.
func Parse(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	for i := range b.Forms {
		normalizeIDs(&b.Forms[i])
	}
	return &b, nil
}

// LoadDir walks root and merges every *.yaml/*.yml file into one Bundle.
// A slug defined twice is an error.
func LoadDir(root string) (*Bundle, error) {
	out := &Bundle{Data: map[string][]map[string]any{}}
	origin := map[string]string{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}

		b, err := ParseFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, f := range b.Forms {
			if strings.TrimSpace(f.Slug) == "" {
				return fmt.Errorf("form without slug in %s", path)
			}
			if prev, dup := origin[f.Slug]; dup {
				return fmt.Errorf("duplicate form %q (files: %s, %s)", f.Slug, prev, path)
			}
			origin[f.Slug] = path
			out.Forms = append(out.Forms, f)
		}
		for table, rows := range b.Data {
			table = CleanTable(table)
			out.Data[table] = append(out.Data[table], rows...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeIDs derives missing ids from the slug so YAML authors can omit
// them: form "<slug>", sections "<slug>.s<N>", fields "<section>.f<M>".
func normalizeIDs(c *MasterConfig) {
	if c.ID == "" {
		c.ID = c.Slug
	}
	for i := range c.Sections {
		s := &c.Sections[i]
		if s.ID == "" {
			s.ID = fmt.Sprintf("%s.s%d", c.Slug, i+1)
		}
		s.FormID = c.ID
		if s.SortOrder == nil {
			n := i + 1
			s.SortOrder = &n
		}
		for j := range s.Fields {
			f := &s.Fields[j]
			if f.ID == "" {
				f.ID = fmt.Sprintf("%s.f%d", s.ID, j+1)
			}
			f.SectionID = s.ID
			if f.SortOrder == nil {
				n := j + 1
				f.SortOrder = &n
			}
		}
	}
}

// Split flattens a MasterConfig back into its three table shapes.
func (c MasterConfig) Split() (Form, []Section, []Field) {
	sections := make([]Section, 0, len(c.Sections))
	var fields []Field
	for _, s := range c.Sections {
		fields = append(fields, s.Fields...)
		s.Fields = nil
		sections = append(sections, s)
	}
	return c.Form, sections, fields
}
