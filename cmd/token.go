package cmd

import (
	"encoding/json"
	"time"

	"github.com/bronystylecrazy/assetbridge/event"
	"github.com/bronystylecrazy/assetbridge/security"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	realm      string
	username   string
	roles      []string
	superuser  bool
	restricted bool
	entityIDs  []string
	ttl        time.Duration
}

type tokenOutput struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTokenCommand(r *Root) *cobra.Command {
	var opts tokenOptions
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token to use as the MQTT connect password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := r.loadConfig()
			if err != nil {
				return err
			}
			authn, err := security.NewAuthenticator(c.Security)
			if err != nil {
				return err
			}
			token, expiresAt, err := authn.Issue(event.AuthContext{
				Realm:      opts.realm,
				Username:   opts.username,
				Roles:      opts.roles,
				Superuser:  opts.superuser,
				Restricted: opts.restricted,
				EntityIDs:  opts.entityIDs,
			}, opts.ttl)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tokenOutput{Token: token, ExpiresAt: expiresAt})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.realm, "realm", "", "realm the token is valid for")
	f.StringVar(&opts.username, "user", "", "preferred username")
	f.StringSliceVar(&opts.roles, "role", nil, "role to grant, repeatable")
	f.BoolVar(&opts.superuser, "superuser", false, "grant access to every realm")
	f.BoolVar(&opts.restricted, "restricted", false, "limit access to the linked entities")
	f.StringSliceVar(&opts.entityIDs, "entity", nil, "entity linked to a restricted user, repeatable")
	f.DurationVar(&opts.ttl, "ttl", 0, "token lifetime, defaults to security.token_ttl")
	_ = cmd.MarkFlagRequired("realm")
	return cmd
}
