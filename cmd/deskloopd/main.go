// deskloopd is the observation/synthesis daemon: it runs every
// component described in spec §4 — the Action Registry, the three
// Observers, the Short-Term Pattern Detector, the Suggestion Lifecycle
// Manager, the Sandbox Executor, the Rolling Summariser, and the
// Control-Plane API — behind one cobra root command, following the
// teacher's cmd/alex-server and cmd/alex entrypoint shape
// (single-responsibility main, graceful SIGTERM/SIGINT shutdown via a
// sync.Once-guarded drain).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "deskloopd: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "deskloopd",
		Short: "Desktop automation observer/synthesiser daemon",
		Long: "deskloopd watches filesystem activity, keystrokes, and the foreground\n" +
			"application; detects repeated patterns; proposes and, once confirmed,\n" +
			"executes sandboxed automations; and exposes everything over an HTTP\n" +
			"control-plane API.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config.yaml")
	return root
}
