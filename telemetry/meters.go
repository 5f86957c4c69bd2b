package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	forgeMeter = otel.Meter("source-management/forge")
	authMeter  = otel.Meter("source-management/auth")
)

// IncForgeOperation increments the forge operations counter for the given forge and operation.
func (m *Metrics) IncForgeOperation(ctx context.Context, forge, operation string) {
	counter, _ := forgeMeter.Int64Counter("forge.operations",
		metric.WithDescription("Count of forge API operations"),
		metric.WithUnit("1"))
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("forge", forge),
		attribute.String("operation", operation),
	))
}

// IncForgeError increments the forge error counter for the given forge and operation.
func (m *Metrics) IncForgeError(ctx context.Context, forge, operation string) {
	counter, _ := forgeMeter.Int64Counter("forge.errors",
		metric.WithDescription("Count of failed forge API operations"),
		metric.WithUnit("1"))
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("forge", forge),
		attribute.String("operation", operation),
	))
}

// IncTokenRefresh increments the installation token refresh counter.
func (m *Metrics) IncTokenRefresh(ctx context.Context) {
	counter, _ := authMeter.Int64Counter("auth.token_refreshes",
		metric.WithDescription("Count of GitHub App installation token refreshes"),
		metric.WithUnit("1"))
	counter.Add(ctx, 1)
}
