package masters

import (
	"context"
	"strings"

	"formdeck/internal/apperror"
	"formdeck/internal/form"
	"formdeck/internal/meta"
	"formdeck/internal/store"
	"formdeck/pkg/logger"
)

const (
	picklistTable = "picklists"
	activeColumn  = "is_active"
)

func intp(n int) *int { return &n }

// PicklistConfig is the fixed form used to edit picklist items.
func PicklistConfig() meta.MasterConfig {
	return meta.MasterConfig{
		Form: meta.Form{
			ID: "picklists", Slug: "picklists", Title: "Picklists", PrimaryTable: picklistTable,
			Datatable: meta.DatatableConfig{DefaultColumns: []meta.Column{
				{Header: "Label", AccessorKey: "label"},
				{Header: "Value", AccessorKey: "value"},
				{Header: "Head", AccessorKey: "head"},
				{Header: "Sort Order", AccessorKey: "sort_order"},
			}},
		},
		Sections: []meta.Section{{
			ID: "picklist-form-section", FormID: "picklists", Title: "Picklist Details", SortOrder: intp(1),
			Fields: []meta.Field{
				{Label: "Label", Column: "label", InputType: meta.InputText, Rules: meta.Rules{"required": true}, RowNo: 1, ColSpan: 6},
				{Label: "Value", Column: "value", InputType: meta.InputText, Rules: meta.Rules{"required": true}, RowNo: 1, ColSpan: 6},
				{Label: "Sort Order", Column: "sort_order", InputType: meta.InputNumber, RowNo: 2, ColSpan: 6},
				{Label: "Head", Column: "head", InputType: meta.InputText, RowNo: 2, ColSpan: 6},
			},
		}},
	}
}

// PicklistTypes — различные type среди активных строк.
func (s *Service) PicklistTypes(ctx context.Context) ([]string, error) {
	return s.store.Distinct(ctx, picklistTable, "type", store.Query{NotFalse: []string{activeColumn}})
}

// Picklists — активные элементы типа по sort_order.
func (s *Service) Picklists(ctx context.Context, typ string) ([]meta.Row, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, apperror.NewValidation("picklist type is required")
	}
	return s.store.List(ctx, picklistTable, store.Query{
		Eq:       map[string]any{"type": typ},
		NotFalse: []string{activeColumn},
		OrderBy:  []store.Order{{Column: "sort_order"}},
	})
}

// SavePicklist создаёт (id == "") или обновляет элемент. type всегда
// берётся из аргумента, company_id подставляется при наличии.
func (s *Service) SavePicklist(ctx context.Context, typ, id string, data map[string]any, company string) (meta.Row, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, apperror.NewFieldErrors(map[string]string{"type": "Type is required"})
	}
	cfg := PicklistConfig()

	if id == "" {
		coerced, errs := form.Check(cfg, data)
		if err := errs.Err(); err != nil {
			return nil, err
		}
		payload := form.CreatePayload(coerced)
		payload["type"] = typ
		attachCompany(payload, company)
		row, err := s.store.Insert(ctx, picklistTable, payload)
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "picklist item created", "type", typ, "id", row["id"])
		return row, nil
	}

	original, err := s.store.Get(ctx, picklistTable, id)
	if err != nil {
		return nil, err
	}
	coerced, errs := form.Coerce(cfg, data)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	merged := map[string]any{}
	for k, v := range original {
		merged[k] = v
	}
	for k, v := range coerced {
		merged[k] = v
	}
	if err := form.Validate(cfg, merged).Err(); err != nil {
		return nil, err
	}
	diff := form.UpdatePayload(coerced, original)
	if !form.Equal(original["type"], typ) {
		diff["type"] = typ
	}
	if len(diff) == 0 {
		return original, nil
	}
	return s.store.Update(ctx, picklistTable, id, diff)
}

// DeactivatePicklist скрывает элемент (is_active = false); строки не удаляются.
func (s *Service) DeactivatePicklist(ctx context.Context, id string) error {
	if _, err := s.store.Update(ctx, picklistTable, id, map[string]any{activeColumn: false}); err != nil {
		return err
	}
	logger.Info(ctx, "picklist item deactivated", "id", id)
	return nil
}
