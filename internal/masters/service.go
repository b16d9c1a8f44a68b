// Package masters wires metadata, the form and grid engines and a Store
// into the operations behind every CRUD screen.
package masters

import (
	"context"
	"fmt"
	"strings"

	"formdeck/internal/apperror"
	"formdeck/internal/form"
	"formdeck/internal/grid"
	"formdeck/internal/meta"
	"formdeck/internal/store"
	"formdeck/pkg/logger"
)

const companyColumn = "company_id"

type Service struct {
	store    store.Store
	pageSize int
}

type Option func(*Service)

// WithPageSize sets the default page size of table views.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, pageSize: grid.DefaultPageSize}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Store() store.Store { return s.store }

// Config: форма по slug → её секции → поля секций (section_id IN ...).
func (s *Service) Config(ctx context.Context, slug string) (meta.MasterConfig, error) {
	f, err := s.store.FormBySlug(ctx, slug)
	if err != nil {
		return meta.MasterConfig{}, err
	}
	sections, err := s.store.Sections(ctx, f.ID)
	if err != nil {
		return meta.MasterConfig{}, err
	}
	fields, err := s.store.Fields(ctx, meta.SectionIDs(sections))
	if err != nil {
		return meta.MasterConfig{}, err
	}
	return meta.Assemble(f, sections, fields), nil
}

// Table returns one page of the form's primary table.
func (s *Service) Table(ctx context.Context, slug string, q grid.Query, baseURL string) (grid.View, error) {
	cfg, err := s.Config(ctx, slug)
	if err != nil {
		return grid.View{}, err
	}
	return s.TableOf(ctx, cfg, q, baseURL)
}

// TableOf is Table for an already loaded configuration.
func (s *Service) TableOf(ctx context.Context, cfg meta.MasterConfig, q grid.Query, baseURL string) (grid.View, error) {
	rows, err := s.store.List(ctx, cfg.CleanTable(), store.Query{})
	if err != nil {
		return grid.View{}, err
	}
	if q.PageSize <= 0 {
		q.PageSize = s.pageSize
	}
	return grid.FormView(cfg, rows, q, baseURL), nil
}

func (s *Service) Record(ctx context.Context, slug, id string) (meta.Row, error) {
	cfg, err := s.Config(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cfg.CleanTable(), id)
}

// Children возвращает строки дочерних секций по id секции.
// Ошибка чтения одной секции не роняет запрос: пустой список + warning.
func (s *Service) Children(ctx context.Context, cfg meta.MasterConfig, parentID string) map[string][]meta.Row {
	out := map[string][]meta.Row{}
	for _, sec := range cfg.ChildSections() {
		rows, err := s.store.List(ctx, meta.CleanTable(sec.TableName), store.Query{
			Eq: map[string]any{sec.ParentKey(): parentID},
		})
		if err != nil {
			logger.Warn(ctx, "child rows unavailable",
				"form", cfg.Slug, "section", sec.ID, "table", sec.TableName, "error", err)
			rows = []meta.Row{}
		}
		out[sec.ID] = rows
	}
	return out
}

// FormView собирает форму: значения записи (если id задан), ошибки,
// варианты для lookup-полей и строки дочерних секций.
func (s *Service) FormView(ctx context.Context, slug, id string, values map[string]any, errs form.FieldErrors) (form.View, error) {
	cfg, err := s.Config(ctx, slug)
	if err != nil {
		return form.View{}, err
	}
	if id != "" && values == nil {
		values, err = s.store.Get(ctx, cfg.CleanTable(), id)
		if err != nil {
			return form.View{}, err
		}
	}
	if id != "" {
		if values == nil {
			values = map[string]any{}
		}
		values["id"] = id
	}

	v := form.Layout(cfg, values, errs)
	for _, w := range v.Lookups() {
		opts, err := s.store.Options(ctx, *w.Source)
		if err != nil {
			logger.Warn(ctx, "lookup options unavailable", "form", slug, "field", w.Name, "error", err)
			continue
		}
		v.SetOptions(w.Name, opts)
	}
	if id != "" {
		for sectionID, rows := range s.Children(ctx, cfg, id) {
			v.SetChildRows(sectionID, rows)
		}
	}
	return v, nil
}

// Create: приведение → проверка → payload → company_id → insert.
// При ошибках проверки в store ничего не пишется.
func (s *Service) Create(ctx context.Context, slug string, data map[string]any, company string) (meta.Row, error) {
	cfg, err := s.Config(ctx, slug)
	if err != nil {
		return nil, err
	}
	coerced, errs := form.Check(cfg, data)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	payload := form.CreatePayload(coerced)
	attachCompany(payload, company)
	if len(payload) == 0 {
		return nil, apperror.NewValidation("nothing to save")
	}

	row, err := s.store.Insert(ctx, cfg.CleanTable(), payload)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "record created", "form", slug, "table", cfg.CleanTable(), "id", row["id"])
	return row, nil
}

func attachCompany(payload map[string]any, company string) {
	company = strings.TrimSpace(company)
	if company == "" {
		return
	}
	if v, ok := payload[companyColumn]; ok && !form.IsEmpty(v) {
		return
	}
	payload[companyColumn] = company
}

type UpdateResult struct {
	Row       meta.Row       `json:"row"`
	Changed   map[string]any `json:"changed"`
	Unchanged bool           `json:"unchanged"`
}

// Update сравнивает отправленное с текущей записью и пишет только разницу.
// Пустая разница — без обращения к store.
func (s *Service) Update(ctx context.Context, slug, id string, data map[string]any, company string) (UpdateResult, error) {
	cfg, err := s.Config(ctx, slug)
	if err != nil {
		return UpdateResult{}, err
	}
	original, err := s.store.Get(ctx, cfg.CleanTable(), id)
	if err != nil {
		return UpdateResult{}, err
	}
	if owner, ok := original[companyColumn]; ok && owner != nil && company != "" && fmt.Sprint(owner) != company {
		// чужая запись для вызывающего не существует
		return UpdateResult{}, apperror.NewNotFound(cfg.CleanTable(), id)
	}

	coerced, errs := form.Coerce(cfg, data)
	// required проверяем на итоговой записи: в PATCH приходят не все поля
	merged := make(map[string]any, len(original)+len(coerced))
	for k, v := range original {
		merged[k] = v
	}
	for k, v := range coerced {
		merged[k] = v
	}
	if err := errs.Err(); err != nil {
		return UpdateResult{}, err
	}
	if err := form.Validate(cfg, merged).Err(); err != nil {
		return UpdateResult{}, err
	}

	diff := form.UpdatePayload(coerced, form.Baseline(cfg, original))
	if len(diff) == 0 {
		return UpdateResult{Row: original, Changed: diff, Unchanged: true}, nil
	}
	row, err := s.store.Update(ctx, cfg.CleanTable(), id, diff)
	if err != nil {
		return UpdateResult{}, err
	}
	logger.Info(ctx, "record updated", "form", slug, "table", cfg.CleanTable(), "id", id, "columns", len(diff))
	return UpdateResult{Row: row, Changed: diff}, nil
}

// Options: статические варианты поля или lookup по source_table.
func (s *Service) Options(ctx context.Context, slug, column string) ([]meta.Option, error) {
	cfg, err := s.Config(ctx, slug)
	if err != nil {
		return nil, err
	}
	f, ok := cfg.FieldByColumn(column)
	if !ok {
		return nil, apperror.NewNotFound("field", column)
	}
	if src, ok := f.DynamicSource(); ok {
		return s.store.Options(ctx, *src)
	}
	opts := f.StaticOptions()
	if opts == nil {
		opts = []meta.Option{}
	}
	return opts, nil
}
