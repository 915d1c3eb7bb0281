package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/detectiq/workbench/internal/domain"
)

// ── Claude-inspired warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// DisableColors drops lipgloss to plain ASCII output for --no-color runs and
// piped output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// RenderNotification formats one notification as a severity-tagged console
// line, the CLI sink's shape.
func RenderNotification(n domain.Notification) string {
	line := fmt.Sprintf("  %s %s", severityTag(n.Severity), titleStyle.Render(n.Title))
	if n.Message != "" {
		line += "  " + dimStyle.Render(n.Message)
	}
	if n.Source != "" {
		line += "  " + faintStyle.Render("("+n.Source+")")
	}
	return line + "\n"
}

func severityTag(severity domain.Severity) string {
	switch severity {
	case domain.SeverityError:
		return errorTagStyle.Render("error")
	case domain.SeverityWarning:
		return warnTagStyle.Render("warn ")
	case domain.SeveritySuccess:
		return passStyle.Render("ok   ")
	default:
		return infoTagStyle.Render("info ")
	}
}

// RenderStatus draws the workspace overview box followed by the asset
// sections.
func RenderStatus(status *domain.WorkspaceStatus) string {
	var b strings.Builder

	// ── Header box ──
	title := headerStyle.Render("detectiq")
	subtitle := dimStyle.Render(status.Root)

	stateLine := statusStateLine(status)
	project := titleStyle.Render(status.Project)
	if status.GitHead != "" {
		project += "  " + faintStyle.Render("@ "+status.GitHead)
	}

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + project + "\n" + stateLine))
	b.WriteString("\n\n")

	// ── Requirements ──
	if status.Sync != nil {
		b.WriteString("  " + titleStyle.Render("Requirements") + "  " +
			faintStyle.Render(shortFingerprint(status.Sync.Fingerprint)) + "\n")
		for _, f := range status.Sync.Files {
			renderFileLine(&b, f)
		}
		for _, issue := range status.Sync.LockIssues {
			fmt.Fprintf(&b, "    %s %s\n", errorTagStyle.Render("lock"), dimStyle.Render(issue))
		}
		b.WriteString("\n")
	}
	if status.SyncError != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", errorTagStyle.Render("error"), dimStyle.Render(status.SyncError))
	}

	// ── Rule packs ──
	if len(status.Rulesets) > 0 {
		b.WriteString(RenderRulesets(status.Rulesets))
		b.WriteString("\n")
	}

	// ── Vector stores ──
	if len(status.VectorStores) > 0 {
		b.WriteString(RenderVectorStores(status.VectorStores))
		b.WriteString("\n")
	}

	// ── Integrations ──
	b.WriteString("  " + titleStyle.Render("Integrations") + "  ")
	if len(status.EnabledIntegrations) == 0 {
		b.WriteString(dimStyle.Render("none enabled"))
	} else {
		b.WriteString(passStyle.Render(strings.Join(status.EnabledIntegrations, ", ")))
	}
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Model") + "         " + dimStyle.Render(status.Model) + "\n")

	return b.String()
}

func statusStateLine(status *domain.WorkspaceStatus) string {
	switch {
	case status.SyncError != "":
		return failStyle.Render("sync failing")
	case status.Sync != nil && status.Sync.Clean() && len(status.DirtyExports) == 0:
		return passStyle.Render("in sync")
	case status.Sync != nil && status.Sync.Clean():
		return warnStyle.Render("uncommitted exports")
	default:
		return failStyle.Render("out of sync")
	}
}

func shortFingerprint(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// RenderSettings draws the effective settings as sectioned key-value lines.
// Callers pass a redacted copy; this renderer never sees raw secrets.
func RenderSettings(cfg domain.Settings) string {
	var b strings.Builder

	key := cfg.OpenAIAPIKey
	if key == "" {
		key = "unset"
	}
	b.WriteString("  " + titleStyle.Render("Model") + "       " + dimStyle.Render(cfg.Model) + "\n")
	b.WriteString("  " + titleStyle.Render("Log level") + "   " + dimStyle.Render(cfg.LogLevel) + "\n")
	b.WriteString("  " + titleStyle.Render("OpenAI key") + "  " + dimStyle.Render(key) + "\n\n")

	b.WriteString("  " + titleStyle.Render("Rule directories") + "\n")
	for _, kind := range domain.RuleKinds() {
		fmt.Fprintf(&b, "    %s  %s\n", padRight(string(kind), 8), fileStyle.Render(cfg.RuleDirectories[kind]))
	}
	b.WriteString("\n")

	b.WriteString("  " + titleStyle.Render("Vector stores") + "\n")
	for _, kind := range domain.RuleKinds() {
		fmt.Fprintf(&b, "    %s  %s\n", padRight(string(kind), 8), fileStyle.Render(cfg.VectorStoreDirectories[kind]))
	}
	b.WriteString("\n")

	b.WriteString("  " + titleStyle.Render("Integrations") + "\n")
	for _, name := range domain.IntegrationNames {
		b.WriteString("    " + padRight(name, 15) + integrationStateTag(cfg, name) + "\n")
	}

	return b.String()
}

func integrationStateTag(cfg domain.Settings, name string) string {
	enabled, endpoint := false, ""
	switch name {
	case "splunk":
		enabled, endpoint = cfg.Integrations.Splunk.Enabled, cfg.Integrations.Splunk.Hostname
	case "elastic":
		enabled, endpoint = cfg.Integrations.Elastic.Enabled, cfg.Integrations.Elastic.Hostname
		if cfg.Integrations.Elastic.CloudID != "" {
			endpoint = "cloud:" + cfg.Integrations.Elastic.CloudID
		}
	case "microsoft_xdr":
		enabled, endpoint = cfg.Integrations.MicrosoftXDR.Enabled, cfg.Integrations.MicrosoftXDR.Hostname
	}
	if !enabled {
		return faintStyle.Render("disabled")
	}
	if endpoint == "" {
		return warnStyle.Render("enabled, no endpoint")
	}
	return passStyle.Render("enabled") + "  " + dimStyle.Render(endpoint)
}
