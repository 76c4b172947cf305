package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bronystylecrazy/assetbridge/eventbus"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v3/client"
	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	var url string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print event bus statistics of a running bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get(strings.TrimSuffix(url, "/")+"/stats", client.Config{Timeout: timeout})
			if err != nil {
				return err
			}
			defer resp.Close()
			if resp.StatusCode() != 200 {
				return fmt.Errorf("stats: unexpected status %d", resp.StatusCode())
			}
			var st eventbus.Stats
			if err := resp.JSON(&st); err != nil {
				return err
			}
			return printStats(cmd, st)
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://127.0.0.1:8080", "base url of the HTTP API")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}

func printStats(cmd *cobra.Command, st eventbus.Stats) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value int64
	}{
		{"sessions", int64(st.Sessions)},
		{"subscriptions", int64(st.Subscriptions)},
		{"entities", int64(st.Entities)},
		{"published", int64(st.Published)},
		{"delivered", int64(st.Delivered)},
		{"writes", int64(st.Writes)},
		{"writes denied", int64(st.WritesDenied)},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row.name, humanize.Comma(row.value))
	}
	return w.Flush()
}
