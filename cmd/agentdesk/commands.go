package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/auth"
	"github.com/dharsanguruparan/AgentDesk/internal/config"
	"github.com/dharsanguruparan/AgentDesk/internal/connection"
	"github.com/dharsanguruparan/AgentDesk/internal/database"
	"github.com/dharsanguruparan/AgentDesk/internal/gateway"
	"github.com/dharsanguruparan/AgentDesk/internal/identity"
	"github.com/dharsanguruparan/AgentDesk/internal/logging"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
	"github.com/dharsanguruparan/AgentDesk/internal/report"
)

// backend opens the configured gateway for one command run.
func backend(cmd *cobra.Command, opts *rootOptions) (gateway.Gateway, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, err := logging.New(true, opts.verbose)
	if err != nil {
		return nil, nil, nil, err
	}
	gw, closeFn, err := database.OpenGateway(cmd.Context(), cfg, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return gw, log, func() {
		closeFn()
		_ = log.Sync()
	}, nil
}

func newIdentityCmd() *cobra.Command {
	var mapPath string
	cmd := &cobra.Command{
		Use:   "identity <email>",
		Short: "Print the agent identity an e-mail address resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir *identity.Directory
			if mapPath != "" {
				var err error
				if dir, err = identity.LoadDirectory(mapPath); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir.Resolver().Resolve(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "", "YAML identity directory (defaults to the built-in table)")
	return cmd
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect saved reports",
	}
	var asJSON bool
	show := &cobra.Command{
		Use:   "show <identity>",
		Short: "Render the saved report of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, _, done, err := backend(cmd, opts)
			if err != nil {
				return err
			}
			defer done()

			var snap model.ReportSnapshot
			err = gateway.ReadJSON(cmd.Context(), gw, gateway.ReportCollection(args[0]), gateway.CurrentReportID, &snap)
			if errors.Is(err, gateway.ErrNotFound) {
				return fmt.Errorf("no saved report for %s", args[0])
			}
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprint(cmd.OutOrStdout(), report.RenderText(snap, snap.LastModified.Local()))
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print the stored document instead of the rendered report")
	cmd.AddCommand(show)
	return cmd
}

func newConnectionsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Manage viewer-agent connections",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List connections",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				gw, log, done, err := backend(cmd, opts)
				if err != nil {
					return err
				}
				defer done()
				list, err := connection.NewManager(gw, nil, log).List(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVIEWER\tAGENT\tSTATUS\tCONNECTED")
				for _, c := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.ViewerEmail, c.AgentName, c.Status, c.ConnectedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "add <viewer-email> <agent>",
			Short: "Connect a viewer to an agent",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				gw, log, done, err := backend(cmd, opts)
				if err != nil {
					return err
				}
				defer done()
				conn, err := connection.NewManager(gw, nil, log).Create(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), conn.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a connection",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				gw, log, done, err := backend(cmd, opts)
				if err != nil {
					return err
				}
				defer done()
				return connection.NewManager(gw, nil, log).Delete(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

func newTokenCmd() *cobra.Command {
	var admin bool
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <email>",
		Short: "Issue a bearer token signed with AGENTDESK_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			role := auth.RoleAgent
			if admin {
				role = auth.RoleAdmin
			}
			tok, err := auth.GenerateToken(cfg.JWTSecret, args[0], role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin role")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "Token lifetime")
	return cmd
}
