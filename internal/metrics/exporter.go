package metrics

import (
	"net/http"

	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewPrometheusExporter wires an OpenTelemetry MeterProvider to a
// dedicated Prometheus registry and returns the MeterProvider plus an
// http.Handler serving its scrape endpoint.
//
// otel.SetMeterProvider must be called by the caller (cmd's runDemo does
// this once at startup) before NewOTelMetrics' package-level
// otel.Meter(...) calls will report through it; until then they're
// no-ops.
func NewPrometheusExporter(registerer prometheus.Registerer) (*metric.MeterProvider, http.Handler, error) {
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registerer))
	if err != nil {
		return nil, nil, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))

	reg, ok := registerer.(*prometheus.Registry)
	if !ok {
		reg = prometheus.NewRegistry()
	}
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, handler, nil
}
