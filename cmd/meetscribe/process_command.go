package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"meetscribe/internal/processing"
	"meetscribe/internal/services"
	"meetscribe/internal/store"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "process [recording-id]",
		Short: "Transcribe a recording now (or every pending recording with --pending)",
		Args: func(cmd *cobra.Command, args []string) error {
			if pending {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				if pending {
					dispatcher := processing.NewDispatcher(a.cfg, a.queue, a.worker, a.logger)
					n, err := dispatcher.RunOnce(runCtx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Processed %d pending recording(s)\n", n)
					return nil
				}

				id := args[0]
				if err := ensureQueued(runCtx, a, id); err != nil {
					return err
				}
				if err := a.worker.Process(runCtx, id); err != nil {
					return err
				}
				trs, err := a.transcripts.ListForRecording(runCtx, id)
				if err != nil {
					return err
				}
				if len(trs) > 0 {
					fmt.Fprintf(out, "Transcribed %s: transcript %s (%d words)\n", id, trs[0].ID, trs[0].WordCount)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "Process every pending queue item")
	return cmd
}

// ensureQueued gives a recording a fresh queue item unless its latest one is
// still pending, so manual runs keep their own attempt history.
func ensureQueued(ctx context.Context, a *app, recordingID string) error {
	item, err := a.queue.Latest(ctx, recordingID)
	if err == nil && item.Status == store.StatusPending {
		return nil
	}
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return err
	}
	rec, err := a.recordings.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.Status != store.StatusPending && rec.Status != store.StatusProcessing {
		return services.Wrap(services.ErrValidation, "cli", "process",
			fmt.Sprintf("recording %s is %s and cannot be transcribed again", recordingID, rec.Status), nil)
	}
	return a.queue.Enqueue(ctx, recordingID)
}
