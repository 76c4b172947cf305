// Package assetbridge assembles the MQTT asset event bridge: the embedded
// broker, the event bus, security, the redis relay and the HTTP API.
package assetbridge

import (
	"context"

	"github.com/bronystylecrazy/assetbridge/bridge"
	"github.com/bronystylecrazy/assetbridge/cfg"
	"github.com/bronystylecrazy/assetbridge/config"
	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/eventbus"
	"github.com/bronystylecrazy/assetbridge/lifecycle"
	"github.com/bronystylecrazy/assetbridge/log"
	"github.com/bronystylecrazy/assetbridge/otel"
	"github.com/bronystylecrazy/assetbridge/realtime"
	"github.com/bronystylecrazy/assetbridge/security"
	"github.com/bronystylecrazy/assetbridge/web"
	"github.com/gofiber/fiber/v3"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New builds the application for c. v is the viper instance c was loaded
// from and may be nil; when set, log level changes in its file apply live.
func New(c config.Config, v *viper.Viper, extra ...fx.Option) *fx.App {
	opts := append([]fx.Option{Options(c, v), fx.WithLogger(log.NewEventLogger)}, extra...)
	return fx.New(opts...)
}

func Options(c config.Config, v *viper.Viper) fx.Option {
	return fx.Options(
		fx.Provide(
			c.Out,
			func() *viper.Viper { return v },
		),
		fx.Provide(
			log.NewAtomicLevel,
			log.NewZapLogger,
		),
		fx.Provide(
			otel.NewMeterProvider,
			func(mp *otel.MeterProvider) metric.MeterProvider { return mp },
			func(mp *otel.MeterProvider) web.MetricsSource { return mp },
			bridge.NewMetrics,
		),
		fx.Provide(
			fx.Annotate(security.NewAuthenticator, fx.As(fx.Self(), new(realtime.Authenticator))),
			fx.Annotate(security.NewPolicy, fx.As(new(event.SubscriptionPolicy), new(event.WritePolicy))),
			fx.Annotate(
				func(c security.Config) fiber.Handler { return web.AdminGuard(c.Secret, c.Issuer) },
				fx.ResultTags(`name:"admin_guard"`),
			),
		),
		fx.Provide(
			fx.Annotate(eventbus.NewBus, fx.As(fx.Self(), new(event.Bus), new(web.StatsSource), new(web.EventSink))),
		),
		fx.Provide(
			web.NewFiberApp,
			func(app *fiber.App) fiber.Router { return app },
			web.NewAPI,
		),
		fx.Provide(
			fx.Annotate(realtime.NewServer, fx.As(fx.Self(), new(bridge.Publisher), new(realtime.Disconnector))),
			realtime.NewConnectionStore,
			bridge.NewHandler,
			realtime.NewHook,
		),
		relayOptions(c.Relay),
		fx.Invoke(Register, watchLogLevel),
	)
}

func relayOptions(relay eventbus.RelayConfig) fx.Option {
	if !relay.Enabled {
		return fx.Options()
	}
	return fx.Provide(
		eventbus.NewRedisClient,
		func(client *eventbus.RedisClient, bus *eventbus.Bus, rc eventbus.RelayConfig, logger *zap.Logger) *eventbus.RedisRelay {
			return eventbus.NewRedisRelay(client.Client, bus, rc, logger)
		},
	)
}

type RegisterParams struct {
	fx.In

	Lc     fx.Lifecycle
	Logger *zap.Logger
	HTTP   web.Config
	App    *fiber.App
	API    *web.API
	Meter  *otel.MeterProvider
	Bus    *eventbus.Bus
	MQTT   *realtime.Server
	Hook   *realtime.Hook
	Redis  *eventbus.RedisClient `optional:"true"`
	Relay  *eventbus.RedisRelay  `optional:"true"`
}

// Register attaches the bridge hook to the broker, mounts the HTTP routes and
// registers start and stop hooks for every component.
func Register(p RegisterParams) error {
	if err := p.MQTT.AppendHooks(p.Hook); err != nil {
		return err
	}
	p.API.Handle(p.App)

	services := []lifecycle.Service{lifecycle.Of("metrics", p.Meter)}
	if p.Relay != nil {
		services = append(services,
			lifecycle.Service{Name: "redis", Stop: func(context.Context) error { return p.Redis.Close() }},
			lifecycle.Of("relay", p.Relay),
		)
	}
	services = append(services,
		lifecycle.Service{Name: "bus", Stop: func(context.Context) error { return p.Bus.Close() }},
		lifecycle.Of("mqtt", p.MQTT),
	)
	lifecycle.Append(p.Lc, p.Logger, services...)
	web.RegisterFiberApp(p.Lc, p.App, p.Logger, p.HTTP)
	return nil
}

func watchLogLevel(v *viper.Viper, level zap.AtomicLevel, logger *zap.Logger) {
	if v == nil {
		return
	}
	cfg.Watch(v, []string{"log.level"}, 0, func(v *viper.Viper) {
		next := log.ParseLevel(v.GetString("log.level"))
		if level.Level() != next {
			level.SetLevel(next)
			logger.Info("log level changed", zap.Stringer("level", next))
		}
	}, logger)
}
