package trace

import "context"

// binding is what a context carries: the tracer and the innermost span.
type binding struct {
	tracer Tracer
	span   uint64
}

type bindingKey struct{}

func bindingOf(ctx context.Context) binding {
	if ctx != nil {
		if b, ok := ctx.Value(bindingKey{}).(binding); ok {
			return b
		}
	}
	return binding{tracer: Nop}
}

// WithTracer returns ctx carrying t; the current span is kept.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	b := bindingOf(ctx)
	b.tracer = OrNop(t)
	return context.WithValue(ctx, bindingKey{}, b)
}

// WithSpan returns ctx whose spans will name s as their parent.
func WithSpan(ctx context.Context, s *Span) context.Context {
	b := bindingOf(ctx)
	b.span = s.ID()
	return context.WithValue(ctx, bindingKey{}, b)
}

// FromContext returns the tracer in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return bindingOf(ctx).tracer
}

// CurrentSpan returns the span ID in ctx, or 0.
func CurrentSpan(ctx context.Context) uint64 {
	return bindingOf(ctx).span
}
