package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Photometry Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Animals: %d | Sessions: %d | Condition groups: %d\n\n",
		r.AnimalCount, r.SessionCount, r.ConditionGroups))

	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Animals | %d |\n", r.DataSummary.TotalAnimals))
	sb.WriteString(fmt.Sprintf("| Total Sessions | %d |\n", r.DataSummary.TotalSessions))
	sb.WriteString(fmt.Sprintf("| Total Events | %d |\n", r.DataSummary.TotalEvents))
	sb.WriteString(fmt.Sprintf("| Total Bouts | %d |\n", r.DataSummary.TotalBouts))
	sb.WriteString("\n")

	if len(r.DataSummary.SessionsByExperiment) > 0 {
		sb.WriteString("### Sessions by Experiment\n\n")
		sb.WriteString("| Experiment | Sessions |\n")
		sb.WriteString("|------------|----------|\n")
		for _, row := range r.DataSummary.SessionsByExperiment {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Experiment, row.Sessions))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Condition Groups\n\n")
	if len(r.GroupStats) == 0 {
		sb.WriteString("No aggregated statistics.\n\n")
	} else {
		sb.WriteString("| Experiment | Event | Label | Animals | Events | Peak Mean | Peak Time (s) | SEM at Peak | Flags |\n")
		sb.WriteString("|------------|-------|-------|---------|--------|-----------|---------------|-------------|-------|\n")
		for _, g := range r.GroupStats {
			flags := ""
			if g.LowN {
				flags = "LOW_N"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %.4f | %.2f | %.4f | %s |\n",
				g.Experiment, g.EventType, g.Label, g.NAnimals, g.NEvents,
				g.PeakMean, g.PeakTime, g.PeakSEM, flags))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Locomotion Bouts\n\n")
	if len(r.BoutSummaries) == 0 {
		sb.WriteString("No bouts detected.\n")
	} else {
		sb.WriteString("| Animal | Day | Bouts | Total (s) | Mean (s) | Mean Peak Speed |\n")
		sb.WriteString("|--------|-----|-------|-----------|----------|------------------|\n")
		for _, b := range r.BoutSummaries {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.1f | %.2f | %.2f |\n",
				b.AnimalID, b.Day, b.NBouts, b.TotalDuration, b.MeanDuration, b.MeanPeakSpeed))
		}
	}

	return sb.String()
}
