package bridge

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const MeterName = "github.com/bronystylecrazy/assetbridge/bridge"

const (
	ReasonGrammar       = "grammar"
	ReasonAnonymous     = "anonymous"
	ReasonFilter        = "filter"
	ReasonAuthorization = "authorization"
	ReasonDecode        = "decode"
	ReasonBus           = "bus"
	ReasonUnsupported   = "unsupported"
)

// Metrics records bridge counters. A nil *Metrics records nothing.
type Metrics struct {
	subscriptions metric.Int64Counter
	rejections    metric.Int64Counter
	forwarded     metric.Int64Counter
	dropped       metric.Int64Counter
	deliveries    metric.Int64Counter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName)

	var m Metrics
	var err error
	if m.subscriptions, err = meter.Int64Counter("assetbridge.subscriptions.accepted",
		metric.WithDescription("Subscriptions accepted and registered on the event bus")); err != nil {
		return nil, err
	}
	if m.rejections, err = meter.Int64Counter("assetbridge.subscriptions.rejected",
		metric.WithDescription("Subscriptions refused, by reason")); err != nil {
		return nil, err
	}
	if m.forwarded, err = meter.Int64Counter("assetbridge.publishes.forwarded",
		metric.WithDescription("Write commands forwarded to the event bus")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("assetbridge.publishes.dropped",
		metric.WithDescription("Publishes dropped, by reason")); err != nil {
		return nil, err
	}
	if m.deliveries, err = meter.Int64Counter("assetbridge.deliveries",
		metric.WithDescription("Events rendered and published to subscribers")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) SubscriptionAccepted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.subscriptions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) SubscriptionRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) PublishForwarded(ctx context.Context) {
	if m == nil {
		return
	}
	m.forwarded.Add(ctx, 1)
}

func (m *Metrics) PublishDropped(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) Delivered(ctx context.Context) {
	if m == nil {
		return
	}
	m.deliveries.Add(ctx, 1)
}
