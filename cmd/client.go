package cmd

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/bronystylecrazy/assetbridge/mqttclient"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errRealmClientRequired = errors.New("--client-id and --realm are required")

type clientFlags struct {
	cfg mqttclient.Config
	qos byte
}

func (f *clientFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.cfg.Broker, "broker", "tcp://127.0.0.1:1883", "broker url")
	fs.StringVar(&f.cfg.ClientID, "client-id", "", "MQTT client id, also the second topic level")
	fs.StringVar(&f.cfg.Realm, "realm", "", "realm, also the first topic level")
	fs.StringVar(&f.cfg.Username, "user", "", "username sent after the realm")
	fs.StringVar(&f.cfg.Token, "token", "", "access token sent as the password")
	fs.DurationVar(&f.cfg.ConnectTimeout, "timeout", 5*time.Second, "connect timeout")
	fs.Uint8Var(&f.qos, "qos", 0, "quality of service")
}

func (f *clientFlags) connect() (*mqttclient.Client, error) {
	if f.cfg.ClientID == "" || f.cfg.Realm == "" {
		return nil, errRealmClientRequired
	}
	return mqttclient.Connect(f.cfg, nil)
}

func newWatchCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "watch <filter-tail>",
		Short: "Subscribe to an asset topic and print every message",
		Long: "Subscribe to <realm>/<client-id>/<filter-tail>, for example\n" +
			"  watch entity/#\n  watch propertyvalue/temperature/ast-1",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			filter := client.Topics().Realm + "/" + client.Topics().ClientID + "/" + args[0]
			if err := client.Subscribe(filter, flags.qos, func(topic string, payload []byte) {
				fmt.Fprintf(out, "%s %s\n", topic, payload)
			}); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newWriteCommand() *cobra.Command {
	var flags clientFlags
	cmd := &cobra.Command{
		Use:   "write <property> <entity-id> <json-value>",
		Short: "Write an attribute value through the broker",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()
			return client.Publish(client.Topics().WritePropertyValue(args[0], args[1]), flags.qos, []byte(args[2]))
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
