// Package cmd holds the assetbridge command line.
package cmd

import (
	"github.com/bronystylecrazy/assetbridge/build"
	"github.com/bronystylecrazy/assetbridge/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Root struct {
	*cobra.Command
	configFile string
}

func NewRoot() *Root {
	r := &Root{}
	r.Command = &cobra.Command{
		Use:           build.Name,
		Short:         "MQTT bridge for realm scoped asset events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	r.PersistentFlags().StringVarP(&r.configFile, "config", "c", config.DefaultFile, "path to the TOML config file")
	r.AddCommand(
		newServeCommand(r),
		newVersionCommand(),
		newTokenCommand(r),
		newWatchCommand(),
		newWriteCommand(),
		newStatsCommand(),
	)
	return r
}

func (r *Root) loadConfig() (config.Config, *viper.Viper, error) {
	return config.Load(r.configFile)
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRoot().Execute()
}
