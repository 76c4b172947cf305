package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/bronystylecrazy/assetbridge"
	"github.com/spf13/cobra"
)

const stopTimeout = 15 * time.Second

func newServeCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MQTT broker, event bus and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, v, err := r.loadConfig()
			if err != nil {
				return err
			}
			app := assetbridge.New(c, v)
			if err := app.Err(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := app.Start(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
			case <-app.Done():
			}

			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return app.Stop(stopCtx)
		},
	}
}
