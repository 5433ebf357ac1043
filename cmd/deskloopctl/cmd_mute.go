package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// newMuteCommand builds `deskloopctl mute <minutes>`, a thin wrapper
// over POST /automation/mute (spec §6, §4.4).
func newMuteCommand(newC func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "mute <minutes>",
		Short: "Silence the pattern detector for N minutes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil || minutes <= 0 {
				return fmt.Errorf("minutes must be a positive integer, got %q", args[0])
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := newC().Mute(ctx, minutes); err != nil {
				return err
			}
			fmt.Printf("muted for %d minute(s)\n", minutes)
			return nil
		},
	}
}
