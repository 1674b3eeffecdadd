package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"starlint/internal/analysis"
	"starlint/internal/history"
)

var (
	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	violationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// Console renders violations grouped by file as "path:line: message" lines.
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Print writes all violations and a summary line. Absence of violations is
// reported distinctly from an empty file set.
func (c *Console) Print(results map[string][]analysis.Violation, filesAnalyzed int) {
	if filesAnalyzed == 0 {
		fmt.Fprintln(c.out, summaryStyle.Render("No files analyzed."))
		return
	}

	files := make([]string, 0, len(results))
	for file := range results {
		files = append(files, file)
	}
	sort.Strings(files)

	total := 0
	for _, file := range files {
		fmt.Fprintln(c.out, fileStyle.Render(file))
		for _, v := range results[file] {
			fmt.Fprintln(c.out, violationStyle.Render(fmt.Sprintf("%s:%d: %s", v.File, v.Line, v.Message)))
			total++
		}
	}

	if total == 0 {
		fmt.Fprintln(c.out, successStyle.Render(fmt.Sprintf("No violations found in %d file(s).", filesAnalyzed)))
		return
	}
	fmt.Fprintln(c.out, summaryStyle.Render(fmt.Sprintf("%d violation(s) in %d of %d file(s).", total, len(files), filesAnalyzed)))
}

// PrintHistory writes one line per recorded run, oldest first, with the
// violation-count change against the previous run.
func (c *Console) PrintHistory(runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, summaryStyle.Render("No recorded runs."))
		return
	}

	for i, run := range runs {
		line := fmt.Sprintf("%s  %s  %d file(s)  %d violation(s)",
			run.Timestamp.Format(time.RFC3339), run.RunID, run.FileCount, run.ViolationCount)
		if i > 0 {
			line += fmt.Sprintf("  (%+d)", run.ViolationCount-runs[i-1].ViolationCount)
		}
		if run.ViolationCount == 0 {
			fmt.Fprintln(c.out, successStyle.Render(line))
		} else {
			fmt.Fprintln(c.out, violationStyle.Render(line))
		}
	}
	fmt.Fprintln(c.out, summaryStyle.Render(fmt.Sprintf("%d run(s) recorded.", len(runs))))
}
