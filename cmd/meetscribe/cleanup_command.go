package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale files from the temporary bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				removed := a.recordings.CleanupTemporary(runCtx)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d temporary file(s) older than %s\n", removed, a.cfg.TempRetention())
				return nil
			})
		},
	}
}
