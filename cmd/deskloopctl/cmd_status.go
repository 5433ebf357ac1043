package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// newStatusCommand builds `deskloopctl status`: a one-shot plain-text
// snapshot (time saved, current activity, pending suggestions,
// today's app usage), rendering pattern descriptions through
// go-term-markdown the way cmd/alex/cli.go renders a single task's
// answer (renderMarkdownCLI).
func newStatusCommand(newC func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot snapshot of daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(newC())
		},
	}
}

func runStatus(c *client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	saved, err := c.TimeSaved(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s (%ds)\n\n", bold("Time saved:"), cyan(saved.Display), saved.TotalSeconds)

	activity, err := c.CurrentActivity(ctx)
	if err == nil {
		fmt.Printf("%s %s, %d actions in the last window\n\n",
			bold("Current activity:"), cyan(orDash(activity.CurrentApp)), activity.RecentActions)
	}

	usage, err := c.AppUsageStats(ctx)
	if err == nil {
		fmt.Printf("%s %s most used today (%d apps tracked)\n\n",
			bold("App usage:"), cyan(orDash(usage.MostUsedToday)), usage.AppsTracked)
	}

	pending, err := c.PendingSuggestions(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println(yellow("No pending suggestions."))
		return nil
	}

	fmt.Println(bold("Pending suggestions:"))
	for _, s := range pending {
		fmt.Printf("\n%s  %s\n", cyan(s.SuggestionID), s.CreatedTS.Format(time.Kitchen))
		fmt.Println(strings.TrimRight(string(markdown.Render(s.PatternDescription, 88, 2)), "\n"))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
