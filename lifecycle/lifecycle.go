// Package lifecycle starts and stops the long running components of the
// bridge in a fixed order.
package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Starter interface {
	Start(ctx context.Context) error
}

type Stopper interface {
	Stop(ctx context.Context) error
}

// Service is one component registered with Append. Either func may be nil.
type Service struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

// Of builds a Service from a value implementing Starter, Stopper or both.
func Of(name string, v any) Service {
	s := Service{Name: name}
	if starter, ok := v.(Starter); ok {
		s.Start = starter.Start
	}
	if stopper, ok := v.(Stopper); ok {
		s.Stop = stopper.Stop
	}
	return s
}

// Append registers services as a single hook. They start in order and stop in
// reverse. When a start fails the services already started are stopped.
func Append(lc fx.Lifecycle, logger *zap.Logger, services ...Service) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var started []Service
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, s := range services {
				if s.Start != nil {
					if err := s.Start(ctx); err != nil {
						err = fmt.Errorf("start %s: %w", s.Name, err)
						return multierr.Append(err, stopAll(ctx, logger, started))
					}
					logger.Debug("service started", zap.String("service", s.Name))
				}
				started = append(started, s)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			err := stopAll(ctx, logger, started)
			started = nil
			return err
		},
	})
}

func stopAll(ctx context.Context, logger *zap.Logger, started []Service) error {
	var errs error
	for i := len(started) - 1; i >= 0; i-- {
		s := started[i]
		if s.Stop == nil {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			logger.Warn("service stop failed", zap.String("service", s.Name), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("stop %s: %w", s.Name, err))
			continue
		}
		logger.Debug("service stopped", zap.String("service", s.Name))
	}
	return errs
}
