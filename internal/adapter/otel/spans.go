package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "nextup"

// StartScoringSpan starts a span around one desirability pass.
func StartScoringSpan(ctx context.Context, candidates int, maxEstimate string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "desirability.score",
		trace.WithAttributes(
			attribute.Int("todos.count", candidates),
			attribute.String("todos.max_time_estimate", maxEstimate),
		),
	)
}

// StartPickSpan starts a span for a weighted-random pick of n items.
func StartPickSpan(ctx context.Context, list string, n int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pick",
		trace.WithAttributes(
			attribute.String("pick.list", list),
			attribute.Int("pick.n", n),
		),
	)
}

// StartBreakUpSpan starts a span for one break-up generation attempt.
func StartBreakUpSpan(ctx context.Context, attempt int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "todos.generate_break_ups",
		trace.WithAttributes(attribute.Int("attempt", attempt)),
	)
}
