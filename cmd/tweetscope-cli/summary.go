package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/use-agent/tweetscope/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

const topPosts = 5

// renderSummary draws the run outcome and its most liked posts.
func renderSummary(s models.RunSnapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tweetscope run") + "\n")
	fmt.Fprintf(&b, "targets  %s\n", strings.Join(s.Targets, ", "))
	if s.JobID != "" {
		fmt.Fprintf(&b, "job      %s %s\n", s.JobID, mutedStyle.Render(string(s.JobStatus)))
	}
	if s.StartedAt != nil && s.FinishedAt != nil {
		fmt.Fprintf(&b, "took     %s\n", s.FinishedAt.Sub(*s.StartedAt).Round(100*time.Millisecond))
	}

	switch s.State {
	case models.RunCompleted:
		fmt.Fprintf(&b, "state    %s\n", okStyle.Render(fmt.Sprintf("completed, %d rows", s.RowCount)))
		if top := topTable(s.Rows); top != "" {
			b.WriteString("\n" + top)
		}
	case models.RunFailed:
		msg := "failed"
		if s.Error != nil {
			msg = fmt.Sprintf("failed: [%s] %s", s.Error.Code, s.Error.Message)
		}
		fmt.Fprintf(&b, "state    %s\n", errorStyle.Render(msg))
	default:
		fmt.Fprintf(&b, "state    %s\n", s.State)
	}

	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// topTable lists the most liked posts as an aligned table.
func topTable(rows []models.NormalizedRow) string {
	if len(rows) == 0 {
		return ""
	}
	sorted := append([]models.NormalizedRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return value(sorted[i].LikeCount) > value(sorted[j].LikeCount)
	})
	if len(sorted) > topPosts {
		sorted = sorted[:topPosts]
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LIKES\tREPLIES\tSHARES\tPOST")
	for _, r := range sorted {
		fmt.Fprintf(tw, "%g\t%g\t%g\t%s\n",
			value(r.LikeCount), value(r.ReplyCount), value(r.ShareCount), snippet(r.PostText, 60))
	}
	tw.Flush()
	return b.String()
}

func renderAnalysis(resp *models.AnalyzeResponse) string {
	header := "analysis"
	if resp.ProfileID != "" {
		header += " · " + resp.ProfileID
	}
	footer := resp.Model
	if resp.LLMUsage != nil {
		footer += fmt.Sprintf(", %d tokens", resp.LLMUsage.TotalTokens)
	}
	return titleStyle.Render(header) + "\n" + resp.Analysis + "\n" + mutedStyle.Render(footer)
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// snippet flattens whitespace and truncates to n runes.
func snippet(p *string, n int) string {
	if p == nil {
		return ""
	}
	s := strings.Join(strings.Fields(*p), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
