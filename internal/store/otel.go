package store

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/perimetra/sentinel/internal/store"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
