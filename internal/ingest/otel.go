package ingest

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/perimetra/sentinel/internal/ingest"

// meter returns the meter from the global OTel provider.
// Returns a no-op meter if no provider is configured.
func meter() metric.Meter {
	return otel.GetMeterProvider().Meter(instrumentationName)
}
