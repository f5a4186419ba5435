package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"meetscribe/internal/daemon"
	"meetscribe/internal/processing"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the transcription worker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				sigCtx, stop := signal.NotifyContext(runCtx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				dispatcher := processing.NewDispatcher(a.cfg, a.queue, a.worker, a.logger)
				opts := []daemon.Option{daemon.WithCleaner(a.recordings, 0)}
				if skipPreflight {
					opts = append(opts, daemon.WithoutPreflight())
				}
				d, err := daemon.New(a.cfg, a.store, a.queue, dispatcher, a.logger, opts...)
				if err != nil {
					return err
				}
				if err := d.Start(sigCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Worker running (database %s); press Ctrl+C to stop\n", a.store.Path())

				<-sigCtx.Done()
				d.Stop()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Start without running readiness checks")
	return cmd
}
