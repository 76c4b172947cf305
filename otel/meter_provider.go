// Package otel owns the process meter provider. Instruments are read on
// demand through a manual reader and exposed by the HTTP endpoints.
package otel

import (
	"context"
	"sort"

	"github.com/bronystylecrazy/assetbridge/build"
	usotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

type MeterProvider struct {
	*sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

func NewMeterProvider(config Config) (*MeterProvider, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", config.serviceName()),
		attribute.String("service.version", build.Version),
	}
	for k, v := range config.ResourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}
	reader := sdkmetric.NewManualReader()
	options := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(attrs...)),
		sdkmetric.WithReader(reader),
	}

	exporter, err := NewMetricExporter(context.Background(), config.OTLP)
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		options = append(options, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.OTLP.interval())),
		))
	}

	mp := &MeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(options...),
		reader:        reader,
	}
	usotel.SetMeterProvider(mp.MeterProvider)
	return mp, nil
}

func (mp *MeterProvider) Stop(ctx context.Context) error {
	return mp.Shutdown(ctx)
}

// Point is one counter value for one attribute set.
type Point struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Value      int64             `json:"value"`
}

// Snapshot collects every int64 sum instrument, keyed by instrument name.
// Points are ordered by descending value.
func (mp *MeterProvider) Snapshot(ctx context.Context) (map[string][]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := mp.reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}
	out := map[string][]Point{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			points := make([]Point, 0, len(sum.DataPoints))
			for _, dp := range sum.DataPoints {
				p := Point{Value: dp.Value}
				if dp.Attributes.Len() > 0 {
					p.Attributes = make(map[string]string, dp.Attributes.Len())
					for _, kv := range dp.Attributes.ToSlice() {
						p.Attributes[string(kv.Key)] = kv.Value.Emit()
					}
				}
				points = append(points, p)
			}
			sort.Slice(points, func(i, j int) bool { return points[i].Value > points[j].Value })
			out[m.Name] = points
		}
	}
	return out, nil
}
