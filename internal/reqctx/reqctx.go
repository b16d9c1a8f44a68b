// Package reqctx carries per-request values (trace ids, company) through context.Context.
package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// Trace contains request tracing information.
type Trace struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}
type companyKey struct{}

// WithTrace adds Trace to context.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// GetTrace returns Trace from context or nil.
func GetTrace(ctx context.Context) *Trace {
	if v, ok := ctx.Value(traceKey{}).(*Trace); ok {
		return v
	}
	return nil
}

// NewTrace creates a Trace with generated ids.
func NewTrace() *Trace {
	return &Trace{
		TraceID:   uuid.New().String(),
		RequestID: uuid.New().String(),
	}
}

// WithCompany stores the caller's company id.
func WithCompany(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, companyKey{}, companyID)
}

// Company returns the caller's company id or "".
func Company(ctx context.Context) string {
	s, _ := ctx.Value(companyKey{}).(string)
	return s
}
