package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"feedback_agent/feedback"
	"feedback_agent/storage"
)

var (
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func statusBadge(s feedback.Status) string {
	if s == feedback.StatusValidated {
		return okStyle.Render(string(s))
	}
	return warnStyle.Render(string(s))
}

func printStatus(w io.Writer, res feedback.RunResult) {
	fmt.Fprintf(w, "%s run %s  score %d/100  %s\n",
		statusBadge(res.Status), res.RunID, res.Review.OverallScore,
		dimStyle.Render("source: "+string(res.Review.Source)))
	for _, issue := range res.Review.MajorIssues {
		fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("!"), issue)
	}
}

func printRunTable(w io.Writer, runs []storage.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no runs stored"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-22s  %5s  %4s  %s", "ID", "STATUS", "SCORE", "ITER", "TOPIC")))
	for _, r := range runs {
		status := fmt.Sprintf("%-22s", r.Status)
		fmt.Fprintf(w, "%-36s  %s  %5d  %4d  %s\n",
			r.ID, strings.Replace(status, string(r.Status), statusBadge(r.Status), 1),
			r.OverallScore, r.Iterations, r.Topic)
	}
}
