// Package store describes the relational backend forms are read from and
// records are written to.
package store

import (
	"context"

	"formdeck/internal/meta"
)

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Query narrows List/Distinct.
type Query struct {
	Eq       map[string]any // column = value
	NotFalse []string       // column IS DISTINCT FROM false (NULL passes)
	OrderBy  []Order
}

// Store is implemented by the memory and postgres backends.
// Missing forms/records come back as apperror NotFound.
type Store interface {
	FormBySlug(ctx context.Context, slug string) (meta.Form, error)
	Sections(ctx context.Context, formID string) ([]meta.Section, error)
	Fields(ctx context.Context, sectionIDs []string) ([]meta.Field, error)

	List(ctx context.Context, table string, q Query) ([]meta.Row, error)
	Get(ctx context.Context, table, id string) (meta.Row, error)
	Insert(ctx context.Context, table string, payload map[string]any) (meta.Row, error)
	Update(ctx context.Context, table, id string, payload map[string]any) (meta.Row, error)

	Options(ctx context.Context, src meta.OptionSource) ([]meta.Option, error)
	Distinct(ctx context.Context, table, column string, q Query) ([]string, error)

	Ping(ctx context.Context) error
}

// Reloader is implemented by backends whose configuration can be swapped at runtime.
type Reloader interface {
	Reload(b *meta.Bundle) error
}
