package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/phonematch-cli/internal/apply"
	"github.com/sells-group/phonematch-cli/internal/crawl"
	"github.com/sells-group/phonematch-cli/internal/failure"
	"github.com/sells-group/phonematch-cli/internal/model"
)

const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorError   = "#FF5F87"
	colorInfo    = "#626262"
	colorBorder  = "#874BFD"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colorSuccess))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorInfo))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(0, 1)
)

// table renders label/value lines aligned with a tabwriter.
func table(lines [][2]string) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	for _, l := range lines {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", l[0], l[1])
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func statusLines(counts map[model.StatusCode]int, total int) [][2]string {
	var lines [][2]string
	for _, s := range model.AllStatuses {
		n := counts[s]
		if n == 0 {
			continue
		}
		label := string(s)
		if s == model.StatusMatched {
			label = okStyle.Render(label)
		} else {
			label = failStyle.Render(label)
		}
		share := 0.0
		if total > 0 {
			share = float64(n) / float64(total)
		}
		lines = append(lines, [2]string{label, fmt.Sprintf("%d (%s)", n, percent(share))})
	}
	return lines
}

// renderSummary writes a crawl or retry summary.
func renderSummary(out io.Writer, title string, sum *crawl.Summary) {
	lines := [][2]string{
		{"Log", sum.OutputPath},
		{"Range", fmt.Sprintf("%d-%d", sum.StartIndex, sum.EndIndex)},
		{"Processed", fmt.Sprintf("%d / %d", sum.Processed, sum.Total)},
		{"Matched", fmt.Sprintf("%d", sum.Matched())},
		{"Duration", sum.Duration.Round(time.Second).String()},
	}
	if sum.Interrupted {
		lines = append(lines, [2]string{"State", failStyle.Render("interrupted, rerun with --resume")})
	}
	body := titleStyle.Render(title) + "\n" + table(lines)
	if s := statusLines(sum.Counts, sum.Processed); len(s) > 0 {
		body += "\n\n" + table(s)
	}
	_, _ = fmt.Fprintln(out, boxStyle.Render(body))
}

// renderReport writes the analysis of one log.
func renderReport(out io.Writer, path string, rep *failure.Report, topN int) {
	head := [][2]string{
		{"Log", path},
		{"Rows", fmt.Sprintf("%d", rep.Total)},
		{"Success rate", fmt.Sprintf("%s (%d matched)", percent(rep.SuccessRate()), rep.Matched())},
	}
	if rep.Skipped > 0 {
		head = append(head, [2]string{"Outside region", fmt.Sprintf("%d", rep.Skipped)})
	}
	body := titleStyle.Render("Result analysis") + "\n" + table(head)

	if s := statusLines(rep.Statuses, rep.Total); len(s) > 0 {
		body += "\n\n" + titleStyle.Render("By status") + "\n" + table(s)
	}

	var buckets [][2]string
	for _, b := range failure.FailureBuckets {
		if n := rep.Buckets[b]; n > 0 {
			buckets = append(buckets, [2]string{failStyle.Render(string(b)), fmt.Sprintf("%d", n)})
		}
	}
	if len(buckets) > 0 {
		body += "\n\n" + titleStyle.Render("Failure buckets") + "\n" + table(buckets)
	}

	if top := rep.TopNeighborhoods(topN); len(top) > 0 {
		var nb [][2]string
		for _, n := range top {
			nb = append(nb, [2]string{n.Name, fmt.Sprintf("%d", n.Count)})
		}
		body += "\n\n" + titleStyle.Render("Neighborhoods") + "\n" + table(nb)
	}
	_, _ = fmt.Fprintln(out, boxStyle.Render(body))
}

// renderRetry writes the outcome of a retry pass.
func renderRetry(out io.Writer, rep *failure.RetryReport) {
	var names []string
	for _, b := range rep.Buckets {
		names = append(names, string(b))
	}
	lines := [][2]string{
		{"Source log", rep.SourceLog},
		{"Buckets", strings.Join(names, ", ")},
		{"Selected", fmt.Sprintf("%d", rep.Selected)},
	}
	if rep.OutputPath != "" {
		lines = append(lines,
			[2]string{"Retry log", rep.OutputPath},
			[2]string{"Succeeded", okStyle.Render(fmt.Sprintf("%d", rep.Succeeded))},
			[2]string{"Still failing", failStyle.Render(fmt.Sprintf("%d", rep.Failed))},
		)
	} else {
		lines = append(lines, [2]string{"", infoStyle.Render("nothing to retry")})
	}
	_, _ = fmt.Fprintln(out, boxStyle.Render(titleStyle.Render("Retry")+"\n"+table(lines)))
}

// renderApply writes the outcome of merging logs into the table.
func renderApply(out io.Writer, path string, s apply.Stats) {
	lines := [][2]string{
		{"Output", path},
		{"Rows", fmt.Sprintf("%d", s.Rows)},
		{"Processed", fmt.Sprintf("%d", s.Processed)},
		{"New phones", okStyle.Render(fmt.Sprintf("%d", s.NewPhones))},
		{"Changed", fmt.Sprintf("%d", s.Changed)},
		{"Unchanged", fmt.Sprintf("%d", s.Unchanged)},
		{"Failed", failStyle.Render(fmt.Sprintf("%d", s.Failed))},
		{"Not processed", fmt.Sprintf("%d", s.NotProcessed)},
	}
	if s.Orphans > 0 {
		lines = append(lines, [2]string{"Unmatched log rows", fmt.Sprintf("%d", s.Orphans)})
	}
	_, _ = fmt.Fprintln(out, boxStyle.Render(titleStyle.Render("Apply")+"\n"+table(lines)))
}
