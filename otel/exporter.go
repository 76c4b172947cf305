package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMetricExporter returns nil when no endpoint is configured.
func NewMetricExporter(ctx context.Context, config OTLPConfig) (sdkmetric.Exporter, error) {
	if strings.TrimSpace(config.Endpoint) == "" {
		return nil, nil
	}
	if strings.EqualFold(config.Protocol, "http") {
		options := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(config.Endpoint)}
		if len(config.Headers) > 0 {
			options = append(options, otlpmetrichttp.WithHeaders(config.Headers))
		}
		if config.Insecure {
			options = append(options, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, options...)
	}

	options := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpointURL(config.Endpoint)}
	if len(config.Headers) > 0 {
		options = append(options, otlpmetricgrpc.WithHeaders(config.Headers))
	}
	if config.Insecure {
		options = append(options, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, options...)
}
