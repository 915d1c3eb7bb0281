package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/detectiq/workbench/internal/domain"
)

// RenderSyncReport formats a plan, check or sync outcome: one glyph line per
// export file, drift diffs when present, lock violations, then a summary.
func RenderSyncReport(report *domain.SyncReport) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Requirements") + "  " +
		faintStyle.Render(shortFingerprint(report.Fingerprint)) + "\n\n")

	for _, f := range report.Files {
		renderFileLine(&b, f)
		if f.Diff != "" {
			renderDiffBlock(&b, f.Diff)
		}
	}

	if len(report.LockIssues) > 0 {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s %s\n",
			errorTagStyle.Render("Lock issues"),
			dimStyle.Render(fmt.Sprintf("(%d)", len(report.LockIssues))),
		))
		for _, issue := range report.LockIssues {
			fmt.Fprintf(&b, "    %s %s\n", failStyle.Render("●"), dimStyle.Render(issue))
		}
	}

	b.WriteString("\n")
	b.WriteString("  " + separatorLine + "\n\n")
	b.WriteString("  " + summaryLine(report) + "\n")

	return b.String()
}

func renderFileLine(b *strings.Builder, f domain.FileResult) {
	glyph, style := statusGlyph(f.Status)

	name := padRight(f.File, 28)
	line := fmt.Sprintf("    %s %s %s", glyph, fileStyle.Render(name), style.Render(string(f.Status)))
	if f.Pins > 0 {
		line += "  " + faintStyle.Render(fmt.Sprintf("%d pins", f.Pins))
	}
	b.WriteString(line + "\n")
}

func statusGlyph(status domain.FileStatus) (string, lipgloss.Style) {
	switch status {
	case domain.FileCreated, domain.FileUpdated:
		return passStyle.Render("●"), passStyle
	case domain.FileDrifted:
		return failStyle.Render("●"), failStyle
	case domain.FileOrphaned:
		return warnStyle.Render("●"), warnStyle
	default:
		return dimStyle.Render("○"), dimStyle
	}
}

// renderDiffBlock indents a unified +/- diff and colors each side.
func renderDiffBlock(b *strings.Builder, diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			fmt.Fprintf(b, "        %s\n", passStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintf(b, "        %s\n", failStyle.Render(line))
		default:
			fmt.Fprintf(b, "        %s\n", faintStyle.Render(line))
		}
	}
}

func summaryLine(report *domain.SyncReport) string {
	var written, drifted, orphaned, unchanged int
	for _, f := range report.Files {
		switch f.Status {
		case domain.FileCreated, domain.FileUpdated:
			written++
		case domain.FileDrifted:
			drifted++
		case domain.FileOrphaned:
			orphaned++
		case domain.FileUnchanged:
			unchanged++
		}
	}

	var parts []string
	if written > 0 {
		parts = append(parts, passStyle.Render(fmt.Sprintf("%d written", written)))
	}
	if drifted > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d drifted", drifted)))
	}
	if orphaned > 0 {
		parts = append(parts, warnStyle.Render(fmt.Sprintf("%d orphaned", orphaned)))
	}
	if unchanged > 0 {
		parts = append(parts, dimStyle.Render(fmt.Sprintf("%d unchanged", unchanged)))
	}
	if len(report.LockIssues) > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d lock issues", len(report.LockIssues))))
	}

	if drifted == 0 && orphaned == 0 && written == 0 && len(report.LockIssues) == 0 {
		return passStyle.Render("Everything in sync.")
	}
	return strings.Join(parts, dimStyle.Render("  ·  "))
}
