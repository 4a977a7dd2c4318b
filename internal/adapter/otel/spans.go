package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dealforge"

// StartDecisionSpan starts a span for one per-reply decision.
func StartDecisionSpan(ctx context.Context, negotiationID, campaignID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "decision",
		trace.WithAttributes(
			attribute.String("negotiation.id", negotiationID),
			attribute.String("campaign.id", campaignID),
		),
	)
}

// StartLLMSpan starts a span for a text-generation call.
func StartLLMSpan(ctx context.Context, operation, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm",
		trace.WithAttributes(
			attribute.String("llm.operation", operation),
			attribute.String("llm.model", model),
		),
	)
}

// StartDispatchSpan starts a span for send or escalation delivery.
func StartDispatchSpan(ctx context.Context, negotiationID, channel string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "dispatch",
		trace.WithAttributes(
			attribute.String("negotiation.id", negotiationID),
			attribute.String("dispatch.channel", channel),
		),
	)
}
