package reporting

import (
	"fmt"
	"strings"

	"photometry-lab/internal/domain"
)

// RenderGroupStatsCSV renders condition group summaries as CSV string.
func RenderGroupStatsCSV(rows []GroupStatRow) string {
	var sb strings.Builder

	sb.WriteString("experiment,event_type,label,n_animals,n_events,low_n,peak_mean,peak_time,peak_sem\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%d,%t,%.6f,%.6f,%.6f\n",
			r.Experiment,
			r.EventType,
			csvField(r.Label),
			r.NAnimals,
			r.NEvents,
			r.LowN,
			r.PeakMean,
			r.PeakTime,
			r.PeakSEM,
		))
	}

	return sb.String()
}

// RenderGroupTracesCSV renders the grand mean and SEM traces in long form,
// one row per grid sample.
func RenderGroupTracesCSV(stats []*domain.ConditionGroupStats) string {
	var sb strings.Builder

	sb.WriteString("experiment,event_type,label,rel_time,grand_mean,sem\n")

	for _, s := range stats {
		for i, rt := range s.RelTimes {
			sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.6f,%.6f\n",
				s.Key.Experiment,
				s.Key.EventType,
				csvField(s.Key.Label),
				rt,
				s.GrandMean[i],
				s.SEM[i],
			))
		}
	}

	return sb.String()
}

// RenderBoutsCSV renders per-session bout summaries as CSV string.
func RenderBoutsCSV(rows []BoutSummaryRow) string {
	var sb strings.Builder

	sb.WriteString("session_id,animal_id,day,n_bouts,total_duration,mean_duration,mean_peak_speed\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%.6f,%.6f,%.6f\n",
			r.SessionID,
			r.AnimalID,
			r.Day,
			r.NBouts,
			r.TotalDuration,
			r.MeanDuration,
			r.MeanPeakSpeed,
		))
	}

	return sb.String()
}

// csvField quotes a field containing commas. Labels from drug timing
// classification stay comma-free, but user-supplied labels may not.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
