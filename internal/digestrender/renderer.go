// Package digestrender renders a consolidated model.Digest into the two
// formats a delivery adapter sends: an HTML email body and a plain-text
// fallback. Pure transform, no I/O.
//
// Grounded on scripts/scout_integrated_alerting.py's _generate_enhanced_html
// / _format_alert_section pair: header band, a three-tile critical/warning/
// normal summary, a per-tier alert section capped to the top N, and a
// footer. The teacher's alert/prometheus.go HTTP handlers are the style
// reference for the small inline HTML this package builds by hand rather
// than through a template engine, since neither original reaches for one.
package digestrender

import (
	"fmt"
	"strings"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// MaxAlertsPerSection caps how many alerts are rendered in detail within
// a single severity tier section, mirroring the original's alerts[:5].
const MaxAlertsPerSection = 5

var severityColor = map[model.Severity]string{
	model.SeverityCritical: "#E74C3C",
	model.SeverityWarning:  "#F39C12",
	model.SeverityInfo:     "#6B8F71",
}

// RenderHTML builds the digest's HTML email body.
func RenderHTML(d *model.Digest) string {
	if d.AllClear {
		return renderAllClearHTML(d)
	}

	critical := filterBySeverity(d.Alerts, model.SeverityCritical)
	warning := filterBySeverity(d.Alerts, model.SeverityWarning)
	normal := len(d.Alerts) - len(critical) - len(warning)

	var b strings.Builder
	b.WriteString(htmlHeader())
	fmt.Fprintf(&b, statsTilesTemplate, len(critical), len(warning), normal)
	b.WriteString(formatAlertSection(critical, "Critical Alerts Requiring Action", severityColor[model.SeverityCritical]))
	b.WriteString(formatAlertSection(warning, "Warnings to Monitor", severityColor[model.SeverityWarning]))
	fmt.Fprintf(&b, issuesSectionTemplate, len(d.Issues))
	b.WriteString(htmlFooter(d))
	return b.String()
}

// RenderText builds the plain-text fallback, one line per alert grouped by
// priority, for MTAs and clients that strip HTML.
func RenderText(d *model.Digest) string {
	if d.AllClear {
		return fmt.Sprintf("SCOUT digest for %s: all clear. %d properties monitored, no alerts.\n",
			d.ReferenceDate.Format("2006-01-02"), len(d.PropertyRollups))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SCOUT digest for %s: %d alerts across %d properties (%d suppressed)\n\n",
		d.ReferenceDate.Format("2006-01-02"), d.TotalAlerts, len(d.PropertyRollups), d.SuppressedCount)

	for _, a := range d.Alerts {
		fmt.Fprintf(&b, "[%s/%s] %s %s: %s\n", a.Priority, a.Severity, a.PropertyID, a.Dimension, a.Message)
	}

	if len(d.Issues) > 0 {
		fmt.Fprintf(&b, "\n%d issue(s) during this run:\n", len(d.Issues))
		for _, iss := range d.Issues {
			fmt.Fprintf(&b, "  - %s %s: %s\n", iss.PropertyID, iss.Reason, iss.Detail)
		}
	}
	return b.String()
}

func filterBySeverity(alerts []model.Alert, sev model.Severity) []model.Alert {
	var out []model.Alert
	for _, a := range alerts {
		if a.Severity == sev {
			out = append(out, a)
		}
	}
	return out
}

func formatAlertSection(alerts []model.Alert, title, color string) string {
	if len(alerts) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, sectionHeaderTemplate, color, title)

	shown := alerts
	if len(shown) > MaxAlertsPerSection {
		shown = shown[:MaxAlertsPerSection]
	}
	for _, a := range shown {
		fmt.Fprintf(&b, alertCardTemplate, color, a.PropertyID, a.Metric, a.DimensionValue,
			a.Date.Format("2006-01-02"), percentDeviation(a), a.BusinessImpact, a.Message, a.Recommendation)
	}
	if len(alerts) > MaxAlertsPerSection {
		fmt.Fprintf(&b, moreAlertsTemplate, len(alerts)-MaxAlertsPerSection)
	}

	b.WriteString("</div>")
	return b.String()
}

// percentDeviation picks whichever AlertDetails field carries a percent
// figure for the alert's detector kind, falling back to the raw delta.
func percentDeviation(a model.Alert) float64 {
	switch a.DetectorKind {
	case model.DetectorTrend:
		return a.Details.PercentChange
	case model.DetectorRecord:
		if a.Details.RecordType == "high" {
			return a.Details.Increase
		}
		return a.Details.Decline
	default:
		return a.Delta
	}
}

func renderAllClearHTML(d *model.Digest) string {
	var b strings.Builder
	b.WriteString(htmlHeader())
	fmt.Fprintf(&b, allClearTemplate, len(d.PropertyRollups))
	b.WriteString(htmlFooter(d))
	return b.String()
}

func htmlHeader() string {
	return `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>SCOUT Alert Digest</title></head>
<body style="font-family: -apple-system, sans-serif; background: #f5f5f5; margin: 0; padding: 20px;">
<div style="max-width: 800px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden;">
<div style="background: #1A5276; color: white; padding: 30px; text-align: center;">
<h1 style="margin: 0; font-size: 32px;">SCOUT</h1>
<p style="margin: 10px 0 0; opacity: 0.9;">Daily Alert Digest</p>
</div>
<div style="height: 4px; background: linear-gradient(90deg, #6B8F71 0%, #F39C12 50%, #E74C3C 100%);"></div>
`
}

func htmlFooter(d *model.Digest) string {
	return fmt.Sprintf(`<div style="padding: 20px; background: #f0f0f0; text-align: center; color: #666; font-size: 12px;">
Statistical Client Observation &amp; Unified Tracking &mdash; reference date %s
</div>
</div>
</body>
</html>
`, d.ReferenceDate.Format("2006-01-02"))
}

const statsTilesTemplate = `<div style="padding: 30px; border-bottom: 1px solid #e0e0e0;">
<h2 style="margin-top: 0;">Run Summary</h2>
<div style="display: flex; justify-content: space-around; text-align: center;">
<div><div style="font-size: 32px; font-weight: bold; color: #E74C3C;">%d</div><div style="color: #666;">Critical</div></div>
<div><div style="font-size: 32px; font-weight: bold; color: #F39C12;">%d</div><div style="color: #666;">Warning</div></div>
<div><div style="font-size: 32px; font-weight: bold; color: #6B8F71;">%d</div><div style="color: #666;">Normal</div></div>
</div>
</div>
`

const sectionHeaderTemplate = `<div style="padding: 30px; border-bottom: 1px solid #e0e0e0;">
<h3 style="margin-top: 0; color: %s;">%s</h3>
`

const alertCardTemplate = `<div style="margin: 15px 0; padding: 15px; background: #f8f9fa; border-left: 4px solid %s; border-radius: 4px;">
<div style="font-weight: bold; margin-bottom: 5px;">%s - %s (%s)</div>
<div style="color: #666; font-size: 14px; margin-bottom: 8px;">%s | %.1f%% deviation | Impact: %d/100</div>
<div style="font-size: 13px; color: #333;">%s</div>
<div style="font-size: 12px; color: #555; font-style: italic;">&#10148; %s</div>
</div>
`

const moreAlertsTemplate = `<div style="color: #999; font-size: 12px; padding: 5px 0;">+%d more in this tier, see the full digest JSON</div>
`

const issuesSectionTemplate = `<div style="padding: 20px 30px; background: #f8f9fa; color: #555; font-size: 13px;">%d issue(s) encountered during this run.</div>
`

const allClearTemplate = `<div style="padding: 40px; text-align: center;">
<div style="font-size: 48px;">&#x2713;</div>
<h2 style="color: #6B8F71;">All Clear</h2>
<p style="color: #666;">%d properties monitored, no alerts crossed their thresholds today.</p>
</div>
`
