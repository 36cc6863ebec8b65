package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "nextup"

// Metrics holds the instruments recorded by the todo service.
type Metrics struct {
	Picks             metric.Int64Counter
	BreakUpsGenerated metric.Int64Counter
	PickedScore       metric.Float64Histogram
	Candidates        metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Picks, err = meter.Int64Counter("nextup.picks",
		metric.WithDescription("Number of todos or funs picked at random"))
	if err != nil {
		return nil, err
	}

	m.BreakUpsGenerated, err = meter.Int64Counter("nextup.breakups.generated",
		metric.WithDescription("Number of break-up todos created"))
	if err != nil {
		return nil, err
	}

	m.PickedScore, err = meter.Float64Histogram("nextup.pick.desirability",
		metric.WithDescription("Desirability of picked todos"),
		metric.WithExplicitBucketBoundaries(0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1))
	if err != nil {
		return nil, err
	}

	m.Candidates, err = meter.Int64Histogram("nextup.pick.candidates",
		metric.WithDescription("Number of scored candidates per pick"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPick records one pick of the given list ("todos" or "funs").
// A nil Metrics records nothing.
func (m *Metrics) RecordPick(ctx context.Context, list string, candidates int, scores ...float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("list", list))
	m.Picks.Add(ctx, int64(len(scores)), attrs)
	m.Candidates.Record(ctx, int64(candidates), attrs)
	for _, s := range scores {
		m.PickedScore.Record(ctx, s, attrs)
	}
}

// RecordBreakUps counts generated break-up todos. A nil Metrics records
// nothing.
func (m *Metrics) RecordBreakUps(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.BreakUpsGenerated.Add(ctx, int64(n))
}
