package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"meetscribe/internal/transfer"
)

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.Time(t))
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "--"
	}
	return (time.Duration(seconds * float64(time.Second))).Round(time.Second).String()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressPrinter renders transfer progress. On a terminal it rewrites one
// line in place; otherwise it prints one line per report.
type progressPrinter struct {
	out         io.Writer
	interactive bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, interactive: isTerminal(out)}
}

func (p *progressPrinter) Report(progress transfer.Progress) {
	line := fmt.Sprintf("%5.1f%%  %s / %s  %s/s  eta %s",
		progress.Progress,
		formatBytes(progress.Loaded),
		formatBytes(progress.Total),
		formatBytes(int64(progress.Speed)),
		formatSeconds(progress.TimeRemaining),
	)
	if !p.interactive {
		fmt.Fprintln(p.out, line)
		return
	}
	fmt.Fprintf(p.out, "\r\033[K%s", line)
	if progress.Loaded >= progress.Total {
		fmt.Fprintln(p.out)
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
