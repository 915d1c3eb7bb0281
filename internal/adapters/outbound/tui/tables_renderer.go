package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/detectiq/workbench/internal/domain"
)

// RenderHistory formats recent runs for terminal output, newest first.
func RenderHistory(runs []domain.Run) string {
	if len(runs) == 0 {
		return "  " + dimStyle.Render("No runs recorded yet.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Run History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, run := range runs {
		started := dimStyle.Render(run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		command := titleStyle.Render(padRight(run.Command, 10))
		status := runStatusTag(run.Status)

		line := fmt.Sprintf("  %s  %s %s", started, command, status)
		if d := runDuration(run); d != "" {
			line += "  " + faintStyle.Render(d)
		}
		if run.Detail != "" {
			line += "  " + dimStyle.Render(run.Detail)
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func runStatusTag(status domain.RunStatus) string {
	switch status {
	case domain.RunOK:
		return passStyle.Render(padRight("ok", 7))
	case domain.RunDrift:
		return warnTagStyle.Render(padRight("drift", 7))
	case domain.RunFailed:
		return errorTagStyle.Render(padRight("failed", 7))
	default:
		return infoTagStyle.Render(padRight("running", 7))
	}
}

func runDuration(run domain.Run) string {
	if run.FinishedAt.IsZero() {
		return ""
	}
	d := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	if d < 0 {
		return ""
	}
	return d.String()
}

// RenderRulesets formats the per-kind rule pack table.
func RenderRulesets(reports []*domain.RulesetReport) string {
	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("Rule Packs") + "\n")

	for _, r := range reports {
		kind := padRight(string(r.Kind), 7)
		if r.Missing {
			fmt.Fprintf(&b, "    %s %s %s  %s\n",
				warnStyle.Render("○"), titleStyle.Render(kind),
				warnStyle.Render("missing"), faintStyle.Render(r.Path))
			continue
		}

		glyph := passStyle.Render("●")
		if r.Invalid > 0 {
			glyph = failStyle.Render("●")
		}
		counts := dimStyle.Render(fmt.Sprintf("%d rules in %d files", r.Rules, r.Files))
		line := fmt.Sprintf("    %s %s %s", glyph, titleStyle.Render(kind), counts)
		if r.Invalid > 0 {
			line += "  " + errorTagStyle.Render(fmt.Sprintf("%d invalid", r.Invalid))
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

// RenderVectorStores formats the per-kind vector store table.
func RenderVectorStores(reports []*domain.VectorStoreReport) string {
	var b strings.Builder
	b.WriteString("  " + titleStyle.Render("Vector Stores") + "\n")

	for _, r := range reports {
		var glyph, status string
		switch r.Status {
		case domain.StoreReady:
			glyph, status = passStyle.Render("●"), passStyle.Render("ready")
		case domain.StorePending:
			glyph, status = warnStyle.Render("●"), warnStyle.Render("pending")
		default:
			glyph, status = failStyle.Render("○"), failStyle.Render("missing")
		}
		fmt.Fprintf(&b, "    %s %s %s  %s\n",
			glyph, titleStyle.Render(padRight(string(r.Kind), 7)), status, faintStyle.Render(r.Path))
	}

	return b.String()
}

// RenderIntegrationResult formats one successful connectivity probe.
func RenderIntegrationResult(result *domain.IntegrationTestResult) string {
	line := fmt.Sprintf("  %s %s %s",
		passStyle.Render("●"),
		titleStyle.Render(padRight(result.Integration, 14)),
		dimStyle.Render(result.Detail),
	)
	line += "  " + faintStyle.Render(fmt.Sprintf("%dms", result.LatencyMS))
	return line + "\n"
}

// RenderIntegrationFailure formats one failed connectivity probe.
func RenderIntegrationFailure(name string, err error) string {
	return fmt.Sprintf("  %s %s %s\n",
		failStyle.Render("●"),
		titleStyle.Render(padRight(name, 14)),
		dimStyle.Render(err.Error()),
	)
}
