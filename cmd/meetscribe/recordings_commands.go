package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"meetscribe/internal/services"
)

func newRecordingsCommand(ctx *commandContext) *cobra.Command {
	recCmd := &cobra.Command{
		Use:     "recordings",
		Aliases: []string{"rec"},
		Short:   "Inspect and manage recordings",
	}

	recCmd.AddCommand(newRecordingsListCommand(ctx))
	recCmd.AddCommand(newRecordingsShowCommand(ctx))
	recCmd.AddCommand(newRecordingsDeleteCommand(ctx))
	recCmd.AddCommand(newRecordingsURLCommand(ctx))

	return recCmd
}

func newRecordingsListCommand(ctx *commandContext) *cobra.Command {
	var (
		owner    string
		limit    int
		offset   int
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				recs, err := a.recordings.ListRecordings(runCtx, owner, limit, offset)
				if err != nil {
					return err
				}
				if jsonFlag {
					views := make([]recordingView, 0, len(recs))
					for _, rec := range recs {
						views = append(views, newRecordingView(rec))
					}
					return writeJSON(cmd, views)
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recordings")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Size", "Created"},
					recordingRows(recs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only list recordings for this owner")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of recordings")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many recordings")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	return cmd
}

func newRecordingsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "show <recording-id>",
		Short: "Show a recording with its transcripts and queue state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				rec, err := a.recordings.GetRecording(runCtx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					return writeJSON(cmd, newRecordingView(rec))
				}

				pairs := recordingDetails(rec)
				trs, err := a.transcripts.ListForRecording(runCtx, rec.ID)
				if err != nil {
					return err
				}
				pairs = append(pairs, [2]string{"Transcripts", fmt.Sprintf("%d", len(trs))})

				item, err := a.queue.Latest(runCtx, rec.ID)
				switch {
				case err == nil:
					queueState := fmt.Sprintf("%s (attempts %d)", item.Status, item.Attempts)
					if item.Error != "" {
						queueState += ": " + item.Error
					}
					pairs = append(pairs, [2]string{"Queue", queueState})
				case !errors.Is(err, services.ErrNotFound):
					return err
				}

				fmt.Fprint(cmd.OutOrStdout(), renderDetails(pairs))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	return cmd
}

func newRecordingsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recording-id>",
		Short: "Delete a recording, its media, and its transcripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				if _, err := a.recordings.DeleteRecording(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted recording %s\n", args[0])
				return nil
			})
		},
	}
}

func newRecordingsURLCommand(ctx *commandContext) *cobra.Command {
	var (
		ttl    time.Duration
		public bool
	)

	cmd := &cobra.Command{
		Use:   "url <recording-id>",
		Short: "Print a signed (or public) URL for a recording's media",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				var (
					url string
					err error
				)
				if public {
					url, err = a.recordings.PublicURL(runCtx, args[0])
				} else {
					url, err = a.recordings.RecordingURL(runCtx, args[0], ttl)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Signed URL lifetime (defaults to storage.signed_url_ttl_seconds)")
	cmd.Flags().BoolVar(&public, "public", false, "Print the unsigned public URL instead")
	return cmd
}
