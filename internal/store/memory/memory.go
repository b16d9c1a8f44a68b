// Package memory is an in-process Store seeded from YAML configuration.
package memory

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"formdeck/internal/apperror"
	"formdeck/internal/meta"
	"formdeck/internal/store"
)

type table struct {
	rows  map[string]meta.Row
	order []string // порядок вставки
}

type Store struct {
	mu       sync.RWMutex
	forms    map[string]meta.Form // slug -> форма
	sections []meta.Section
	fields   []meta.Field
	data     map[string]*table // имя таблицы -> строки
	entropy  io.Reader
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)
var _ store.Reloader = (*Store)(nil)

// New наполняет хранилище конфигурацией и seed-строками бандла.
func New(b *meta.Bundle) *Store {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Store{
		forms:   map[string]meta.Form{},
		data:    map[string]*table{},
		entropy: ulid.Monotonic(src, 0),
		now:     time.Now,
	}
	if b != nil {
		s.setConfig(b.Forms)
		s.seed(b.Data)
	}
	return s
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// setConfig вызывается под write-локом (или до публикации хранилища).
func (s *Store) setConfig(configs []meta.MasterConfig) {
	s.forms = make(map[string]meta.Form, len(configs))
	s.sections = nil
	s.fields = nil
	for _, c := range configs {
		form, sections, fields := c.Split()
		s.forms[form.Slug] = form
		s.sections = append(s.sections, sections...)
		s.fields = append(s.fields, fields...)
	}
}

// seed добавляет строки, id которых ещё нет; существующие не трогает.
func (s *Store) seed(data map[string][]meta.Row) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.tableFor(meta.CleanTable(name))
		for _, r := range data[name] {
			row := cloneRow(r)
			id := idOf(row)
			if id == "" {
				id = s.newID()
			}
			if _, exists := t.rows[id]; exists {
				continue
			}
			row["id"] = id
			t.rows[id] = row
			t.order = append(t.order, id)
		}
	}
}

// Reload атомарно меняет конфигурацию форм; данные сохраняются,
// новые seed-строки добавляются.
func (s *Store) Reload(b *meta.Bundle) error {
	if b == nil {
		return fmt.Errorf("memory: nil bundle")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setConfig(b.Forms)
	s.seed(b.Data)
	return nil
}

func (s *Store) tableFor(name string) *table {
	t := s.data[name]
	if t == nil {
		t = &table{rows: map[string]meta.Row{}}
		s.data[name] = t
	}
	return t
}

func idOf(r meta.Row) string {
	v, ok := r["id"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func cloneRow(r meta.Row) meta.Row {
	out := make(meta.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (s *Store) Ping(context.Context) error { return nil }

// ==== конфигурация ====

func (s *Store) FormBySlug(_ context.Context, slug string) (meta.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forms[slug]
	if !ok {
		return meta.Form{}, apperror.NewNotFound("form", slug)
	}
	return f, nil
}

func (s *Store) Sections(_ context.Context, formID string) ([]meta.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []meta.Section
	for _, sec := range s.sections {
		if sec.FormID == formID {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *Store) Fields(_ context.Context, sectionIDs []string) ([]meta.Field, error) {
	want := make(map[string]bool, len(sectionIDs))
	for _, id := range sectionIDs {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []meta.Field
	for _, f := range s.fields {
		if want[f.SectionID] {
			out = append(out, f)
		}
	}
	return out, nil
}

// ==== данные ====

func (s *Store) List(_ context.Context, name string, q store.Query) ([]meta.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.data[meta.CleanTable(name)]
	if t == nil {
		return []meta.Row{}, nil
	}
	out := make([]meta.Row, 0, len(t.order))
	for _, id := range t.order {
		r := t.rows[id]
		if matches(r, q) {
			out = append(out, cloneRow(r))
		}
	}
	sortRows(out, q.OrderBy)
	return out, nil
}

func (s *Store) Get(_ context.Context, name, id string) (meta.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.data[meta.CleanTable(name)]
	if t == nil || t.rows[id] == nil {
		return nil, apperror.NewNotFound(meta.CleanTable(name), id)
	}
	return cloneRow(t.rows[id]), nil
}

func (s *Store) Insert(_ context.Context, name string, payload map[string]any) (meta.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableFor(meta.CleanTable(name))

	row := cloneRow(payload)
	id := idOf(row)
	if id == "" {
		id = s.newID()
	} else if _, exists := t.rows[id]; exists {
		return nil, apperror.NewConflict(fmt.Sprintf("%s %s already exists", meta.CleanTable(name), id))
	}
	row["id"] = id
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = s.now().UTC()
	}
	t.rows[id] = row
	t.order = append(t.order, id)
	return cloneRow(row), nil
}

func (s *Store) Update(_ context.Context, name, id string, payload map[string]any) (meta.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.data[meta.CleanTable(name)]
	if t == nil || t.rows[id] == nil {
		return nil, apperror.NewNotFound(meta.CleanTable(name), id)
	}
	row := t.rows[id]
	for k, v := range payload {
		if k == "id" {
			continue
		}
		row[k] = v
	}
	row["updated_at"] = s.now().UTC()
	return cloneRow(row), nil
}

// Options читает value/label из source-таблицы, сортирует по label.
func (s *Store) Options(ctx context.Context, src meta.OptionSource) ([]meta.Option, error) {
	rows, err := s.List(ctx, src.Table, store.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]meta.Option, 0, len(rows))
	for _, r := range rows {
		val := r[src.ValueColumn]
		if val == nil {
			continue
		}
		opt := meta.Option{Value: fmt.Sprint(val)}
		if lbl := r[src.LabelColumn]; lbl != nil && fmt.Sprint(lbl) != "" {
			opt.Label = fmt.Sprint(lbl)
		} else {
			opt.Label = opt.Value
		}
		out = append(out, opt)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out, nil
}

func (s *Store) Distinct(ctx context.Context, name, column string, q store.Query) ([]string, error) {
	rows, err := s.List(ctx, name, q)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		v := r[column]
		if v == nil {
			continue
		}
		sv := fmt.Sprint(v)
		if sv == "" || seen[sv] {
			continue
		}
		seen[sv] = true
		out = append(out, sv)
	}
	sort.Strings(out)
	return out, nil
}
