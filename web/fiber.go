// Package web serves the HTTP side of the bridge: health and statistics, the
// admin API and the route the MQTT websocket listener is mounted on.
package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/bronystylecrazy/assetbridge/build"
	fiberzap "github.com/gofiber/contrib/v3/zap"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewFiberApp(config Config, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      buildAppName(config.Name),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
		ErrorHandler: errorHandler,
	})
	if logger != nil {
		app.Use(fiberzap.New(fiberzap.Config{
			Logger: logger.Named("http"),
		}))
	}
	return app
}

func buildAppName(name string) string {
	if name == "" {
		name = build.Name
	}
	return fmt.Sprintf("%s (%s %s %s)", name, build.Version, build.Commit, build.BuildDate)
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func RegisterFiberApp(lc fx.Lifecycle, app *fiber.App, logger *zap.Logger, config Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				err := app.Listen(config.Address(), fiber.ListenConfig{DisableStartupMessage: true})
				if err != nil {
					logger.Error("failed to start fiber app", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}
