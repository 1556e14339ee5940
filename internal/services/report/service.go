// Package report ranks successful dumps and renders the final listing.
package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/fgeck/dbdump-homelab/internal/models"
)

// Rank returns a copy of results sorted by duration ascending. Equal
// durations keep selection order.
func Rank(results []models.DumpResult) []models.DumpResult {
	ranked := slices.Clone(results)
	slices.SortStableFunc(ranked, func(a, b models.DumpResult) int {
		if c := cmp.Compare(a.Duration, b.Duration); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return ranked
}

// Renderer writes a human-readable run report.
type Renderer struct {
	out     io.Writer
	title   *color.Color
	name    *color.Color
	success *color.Color
	failure *color.Color
	muted   *color.Color
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:     out,
		title:   color.New(color.Bold, color.FgCyan),
		name:    color.New(color.FgWhite, color.Bold),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		muted:   color.New(color.FgHiBlack),
	}
}

// Render prints the ranked successes of run followed by a one-line summary.
// Failed databases are only counted; their diagnostics were logged when
// they failed.
func (r *Renderer) Render(run *models.ExportRun) error {
	w := &errWriter{w: r.out}

	w.print(r.title, "Successful dumps (fastest first)\n")

	if len(run.Successes) == 0 {
		w.print(r.muted, "  none\n")
	}

	width := len("Database")
	for _, res := range run.Successes {
		width = max(width, len(res.Database))
	}

	if len(run.Successes) > 0 {
		w.print(r.muted, fmt.Sprintf("  %4s  %-*s  %14s  %10s  %s\n", "#", width, "Database", "Microseconds", "Duration", "Archive"))
	}

	for i, res := range run.Successes {
		w.print(nil, fmt.Sprintf("  %4d  ", i+1))
		w.print(r.name, fmt.Sprintf("%-*s", width, res.Database))
		w.print(r.success, fmt.Sprintf("  %14d  %10s", res.Duration.Microseconds(), FormatDuration(res.Duration)))
		w.print(r.muted, fmt.Sprintf("  %s\n", FormatBytes(res.ArchiveBytes)))
	}

	w.print(nil, "\n")
	w.print(r.success, fmt.Sprintf("%d succeeded", len(run.Successes)))
	w.print(nil, ", ")
	if len(run.Failures) > 0 {
		w.print(r.failure, fmt.Sprintf("%d failed", len(run.Failures)))
	} else {
		w.print(nil, "0 failed")
	}
	w.print(nil, fmt.Sprintf(" of %d selected (%d discovered) in %s\n",
		len(run.Selected), len(run.Discovered), FormatDuration(run.Duration)))

	return w.err
}

// errWriter keeps the first write error so Render can check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) print(c *color.Color, s string) {
	if e.err != nil {
		return
	}
	if c == nil {
		_, e.err = io.WriteString(e.w, s)
		return
	}
	_, e.err = c.Fprint(e.w, s)
}

// FormatDuration rounds d to a precision that suits its magnitude.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Microsecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

// FormatBytes formats a byte count with binary units.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
