package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-refine/internal/ports"
)

// TracingObserver implements ports.ProgressObserver by recording each
// loop phase as a span event, giving traces an iteration-by-iteration
// view of a refinement session without coupling the engine to OTel.
type TracingObserver struct {
	tracer trace.Tracer
	span   trace.Span
}

// NewTracingObserver starts a span for one refinement session under ctx
// and returns an observer annotating it. Call End when the session's
// Run call has returned.
func NewTracingObserver(ctx context.Context) *TracingObserver {
	tracer := otel.Tracer("refine-loop")
	_, span := tracer.Start(ctx, "refine.run")
	return &TracingObserver{tracer: tracer, span: span}
}

// OnProgress records the progress event on the session span.
func (o *TracingObserver) OnProgress(event ports.ProgressEvent) {
	attrs := []attribute.KeyValue{
		attribute.Int("refine.index", event.Index),
		attribute.String("refine.phase", string(event.Phase)),
		attribute.Int("refine.iterations", len(event.Snapshot.Records)),
	}
	if event.Verdict != nil {
		attrs = append(attrs, attribute.String("refine.verdict", event.Verdict.String()))
	}
	if event.Snapshot.Terminated {
		attrs = append(attrs,
			attribute.String("refine.status", event.Snapshot.Status.String()),
			attribute.Int("refine.committed_index", event.Snapshot.CommittedIndex),
		)
	}
	o.span.AddEvent("refine.progress", trace.WithAttributes(attrs...))
}

// End completes the session span.
func (o *TracingObserver) End() { o.span.End() }

// Compile-time verification that TracingObserver implements the port.
var _ ports.ProgressObserver = (*TracingObserver)(nil)
