package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"meetscribe/internal/config"
	"meetscribe/internal/recordings"
	"meetscribe/internal/store"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		title       string
		description string
		owner       string
		platform    string
		meetingID   string
		contentType string
		process     bool
		quiet       bool
		allowDup    bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a recording and queue it for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve file path: %w", err)
			}
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				printer := newProgressPrinter(out)

				var (
					mu        sync.Mutex
					uploaded  *store.Recording
					uploadErr error
				)
				opts := recordings.UploadOptions{
					Path:            path,
					OwnerID:         owner,
					Title:           title,
					Description:     description,
					MeetingPlatform: platform,
					MeetingID:       meetingID,
					ContentType:     contentType,
					AllowDuplicate:  allowDup,
					OnComplete: func(rec *store.Recording) {
						mu.Lock()
						uploaded = rec
						mu.Unlock()
					},
					OnError: func(err error) {
						mu.Lock()
						uploadErr = err
						mu.Unlock()
					},
				}
				if !quiet {
					opts.OnProgress = printer.Report
				}

				rec, err := a.recordings.UploadRecording(runCtx, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Uploading %s as %s (%s)\n", rec.Title, rec.ID, formatBytes(rec.FileSize))

				if err := a.uploads.Wait(runCtx); err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if uploadErr != nil {
					return fmt.Errorf("upload %s: %w", rec.ID, uploadErr)
				}
				if uploaded == nil {
					return fmt.Errorf("upload %s did not finish", rec.ID)
				}
				fmt.Fprintf(out, "Uploaded %s to %s\n", uploaded.ID, uploaded.FilePath)

				if !process {
					fmt.Fprintln(out, "Queued for transcription; run `meetscribe worker` or `meetscribe process "+uploaded.ID+"`")
					return nil
				}
				if err := a.worker.Process(runCtx, uploaded.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Transcribed %s\n", uploaded.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Recording title (defaults to the file name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Recording description")
	cmd.Flags().StringVar(&owner, "owner", "local", "Owner id the recording belongs to")
	cmd.Flags().StringVar(&platform, "platform", "", "Meeting platform (zoom, meet, teams, ...)")
	cmd.Flags().StringVar(&meetingID, "meeting-id", "", "Meeting identifier on the platform")
	cmd.Flags().StringVar(&contentType, "type", "", "Media type; detected from content when empty")
	cmd.Flags().BoolVar(&process, "process", false, "Transcribe immediately after the upload")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVar(&allowDup, "allow-duplicate", false, "Upload even if the owner already stored this file")
	return cmd
}
