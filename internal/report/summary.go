// Package report renders human-readable summaries of mapping runs.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jgu13/ark-analysis/internal/mapper"
)

// printer formats pixel counts with thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// Styles used when rendering to a terminal.
var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// timePrecision is the rounding applied to elapsed times in the summary.
const timePrecision = 10 * time.Millisecond

// FormatCount formats an integer with thousand separators.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// RenderSummary writes a per-cluster pixel count table for a completed run.
// When styled is false (stdout is not a terminal), plain text is emitted.
func RenderSummary(w io.Writer, sum *mapper.Summary, styled bool) error {
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintln(w, style(headerStyle, "Pixel cluster mapping summary"))
	info := fmt.Sprintf("%d FOVs | %s pixels", len(sum.FOVs), FormatCount(sum.Rows))
	if sum.RunID != "" {
		info = fmt.Sprintf("run %s | %s | %s", sum.RunID, info, sum.Elapsed.Round(timePrecision))
	}
	fmt.Fprintf(w, "%s\n\n", style(dimStyle, info))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLUSTER\tPIXELS\tSHARE")
	empty := 0
	for cluster, count := range sum.ClusterCounts {
		share := 0.0
		if sum.Rows > 0 {
			share = float64(count) / float64(sum.Rows) * 100
		}
		if count == 0 {
			empty++
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f%%\n", cluster, FormatCount(count), share)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if empty > 0 {
		fmt.Fprintf(w, "\n%s\n", style(warnStyle, fmt.Sprintf(
			"%d of %d clusters received no pixels", empty, len(sum.ClusterCounts))))
	}
	return nil
}
