// Package statustable renders a process-list response as an aligned
// text table for the CLI's "proc list" output, using text/tabwriter
// for column alignment and go-humanize for the byte-count columns.
package statustable

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/capsulenv/capsulenv/internal/model"
)

// Write renders entries as a tab-aligned table: name, status, restarts,
// cpu%, memory, disk read/write, and runtime.
func Write(w io.Writer, entries []model.ListEntry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tRESTARTS\tCPU%\tMEM\tDISK R\tDISK W\tRUNTIME")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f\t%s\t%s\t%s\t%s\n",
			e.Name,
			e.Status.String(),
			e.Restarts,
			e.CPUPercent,
			humanize.Bytes(e.MemoryBytes),
			humanize.Bytes(e.DiskReadBytes),
			humanize.Bytes(e.DiskWriteBytes),
			time.Duration(e.RuntimeSeconds*float64(time.Second)).Round(time.Second).String(),
		)
	}
	return tw.Flush()
}
