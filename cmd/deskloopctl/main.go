// deskloopctl is the terminal companion against deskloopd's
// control-plane API (spec §9 "arbitrary frontend"): a live dashboard
// (watch), an interactive suggestion review flow (review), and plain
// one-shot queries (status, mute), following the teacher's cmd/alex
// split between a cobra root and per-mode run functions
// (cmd/alex/cobra_cli.go, cmd/alex/interactive.go, cmd/alex/tui_bubbletea.go).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deskloopctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:   "deskloopctl",
		Short: "Terminal companion for the deskloopd automation daemon",
		Long: "deskloopctl talks to a running deskloopd over its control-plane HTTP\n" +
			"API: watch live activity, review and execute automation suggestions,\n" +
			"and query time saved and app usage.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8002", "deskloopd control-plane base URL")

	newC := func() *client { return newClient(addr) }

	root.AddCommand(newStatusCommand(newC))
	root.AddCommand(newWatchCommand(newC))
	root.AddCommand(newReviewCommand(newC))
	root.AddCommand(newMuteCommand(newC))
	return root
}
