// Command agentdesk is the operator CLI: identity and report inspection,
// connection admin, dev tokens and the local docker stack.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "agentdesk: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	composeFile string
	verbose     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "agentdesk",
		Short: "AgentDesk operator CLI",
		Long: `agentdesk inspects agent reports and identities, manages viewer-agent connections,
issues development tokens and drives the local docker-compose stack.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.composeFile, "compose-file", "f", "docker-compose.yml", "Compose file to use for stack commands")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	cmd.AddCommand(
		newIdentityCmd(),
		newReportCmd(opts),
		newConnectionsCmd(opts),
		newTokenCmd(),
		newUpCmd(opts),
		newDownCmd(opts),
		newTestCmd(),
	)
	return cmd
}
