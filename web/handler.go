package web

import (
	"context"
	"errors"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/eventbus"
	"github.com/bronystylecrazy/assetbridge/otel"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultDisconnectReason = "disconnected by administrator"

type StatsSource interface {
	Stats() eventbus.Stats
}

type MetricsSource interface {
	Snapshot(ctx context.Context) (map[string][]otel.Point, error)
}

// EventSink accepts events published from outside the broker.
type EventSink interface {
	Publish(ctx context.Context, ev event.Event)
	Disconnect(sessionKey, reason string) error
}

type API struct {
	stats   StatsSource
	metrics MetricsSource
	sink    EventSink
	guard   fiber.Handler
	log     *zap.Logger
}

type APIParams struct {
	fx.In
	Stats   StatsSource
	Metrics MetricsSource `optional:"true"`
	Sink    EventSink
	Guard   fiber.Handler `name:"admin_guard"`
	Logger  *zap.Logger   `optional:"true"`
}

func NewAPI(p APIParams) *API {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		stats:   p.Stats,
		metrics: p.Metrics,
		sink:    p.Sink,
		guard:   p.Guard,
		log:     log.Named("api"),
	}
}

func (a *API) Handle(r fiber.Router) {
	r.Get("/healthz", a.health)
	r.Get("/stats", a.statistics)
	r.Get("/metrics", a.metricSnapshot)

	admin := r.Group("/admin", a.guard)
	admin.Post("/events", a.publish)
	admin.Post("/sessions/:key/disconnect", a.disconnect)
}

func (a *API) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (a *API) statistics(c fiber.Ctx) error {
	return c.JSON(a.stats.Stats())
}

func (a *API) metricSnapshot(c fiber.Ctx) error {
	if a.metrics == nil {
		return fiber.NewError(fiber.StatusNotFound, "metrics disabled")
	}
	snap, err := a.metrics.Snapshot(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

func (a *API) publish(c fiber.Ctx) error {
	var ev event.Event
	if err := ev.UnmarshalJSON(c.Body()); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if ev.EntityID() == "" || ev.Realm() == "" {
		return fiber.NewError(fiber.StatusBadRequest, "event requires entityId and realm")
	}
	a.sink.Publish(c.Context(), ev)
	a.log.Debug("event accepted", zap.Stringer("kind", ev.Kind()), zap.String("entity_id", ev.EntityID()), zap.String("realm", ev.Realm()))
	return c.SendStatus(fiber.StatusAccepted)
}

type disconnectRequest struct {
	Reason string `json:"reason"`
}

func (a *API) disconnect(c fiber.Ctx) error {
	var req disconnectRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if req.Reason == "" {
		req.Reason = defaultDisconnectReason
	}

	key := c.Params("key")
	err := a.sink.Disconnect(key, req.Reason)
	switch {
	case errors.Is(err, eventbus.ErrUnknownSession):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, eventbus.ErrNoDisconnect):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	a.log.Info("session disconnected", zap.String("session_key", key), zap.String("reason", req.Reason))
	return c.SendStatus(fiber.StatusNoContent)
}
