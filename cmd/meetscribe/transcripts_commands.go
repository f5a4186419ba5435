package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"meetscribe/internal/language"
)

func newTranscriptsCommand(ctx *commandContext) *cobra.Command {
	trCmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"tr"},
		Short:   "Inspect and manage transcripts",
	}

	trCmd.AddCommand(newTranscriptsListCommand(ctx))
	trCmd.AddCommand(newTranscriptsShowCommand(ctx))
	trCmd.AddCommand(newTranscriptsDeleteCommand(ctx))

	return trCmd
}

func newTranscriptsListCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "list <recording-id>",
		Short: "List a recording's transcripts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				if _, err := a.recordings.GetRecording(runCtx, args[0]); err != nil {
					return err
				}
				trs, err := a.transcripts.ListForRecording(runCtx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					views := make([]transcriptView, 0, len(trs))
					for _, tr := range trs {
						views = append(views, newTranscriptView(tr, ""))
					}
					return writeJSON(cmd, views)
				}
				if len(trs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No transcripts")
					return nil
				}
				rows := make([][]string, 0, len(trs))
				for _, tr := range trs {
					rows = append(rows, []string{
						tr.ID,
						language.DisplayName(tr.Language),
						strconv.Itoa(tr.WordCount),
						string(tr.Status),
						formatTimestamp(tr.CreatedAt),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Language", "Words", "Status", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	return cmd
}

func newTranscriptsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "show <transcript-id>",
		Short: "Print a transcript's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				tr, content, err := a.transcripts.Get(runCtx, args[0])
				if err != nil {
					return err
				}
				if jsonFlag {
					return writeJSON(cmd, newTranscriptView(tr, content))
				}
				fmt.Fprintln(cmd.OutOrStdout(), content)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Output as JSON")
	return cmd
}

func newTranscriptsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <transcript-id>",
		Short: "Delete a transcript and its content blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(runCtx context.Context, a *app) error {
				deleted, err := a.transcripts.Delete(runCtx, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("transcript %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transcript %s\n", args[0])
				return nil
			})
		},
	}
}
