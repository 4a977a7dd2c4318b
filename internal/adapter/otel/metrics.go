package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dealforge"

// Metrics holds all DealForge metric instruments.
type Metrics struct {
	RepliesProcessed metric.Int64Counter
	Escalations      metric.Int64Counter
	DealsAgreed      metric.Int64Counter
	DealsRejected    metric.Int64Counter
	DecisionDuration metric.Float64Histogram
	AgreedCPM        metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.RepliesProcessed, err = meter.Int64Counter("dealforge.replies.processed",
		metric.WithDescription("Number of inbound replies decided"))
	if err != nil {
		return nil, err
	}

	m.Escalations, err = meter.Int64Counter("dealforge.escalations",
		metric.WithDescription("Number of negotiations escalated to a human"))
	if err != nil {
		return nil, err
	}

	m.DealsAgreed, err = meter.Int64Counter("dealforge.deals.agreed",
		metric.WithDescription("Number of negotiations closed as agreed"))
	if err != nil {
		return nil, err
	}

	m.DealsRejected, err = meter.Int64Counter("dealforge.deals.rejected",
		metric.WithDescription("Number of negotiations closed as rejected"))
	if err != nil {
		return nil, err
	}

	m.DecisionDuration, err = meter.Float64Histogram("dealforge.decision.duration_seconds",
		metric.WithDescription("Per-reply decision duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.AgreedCPM, err = meter.Float64Histogram("dealforge.deals.agreed_cpm",
		metric.WithDescription("Agreed CPM per closed deal"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
