package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"photometry-lab/internal/domain"
)

// SessionFiles locates one session's CSV files under a data directory.
// A session directory is named <animal>_<day>_<experiment>, e.g.
// "m1_Day1_running-drug", and may contain signal.csv, reference.csv,
// speed.csv, events.csv and ttl.csv. Absent files leave empty paths.
type SessionFiles struct {
	AnimalID   string
	Day        string
	Experiment domain.ExperimentType

	SignalPath    string
	ReferencePath string
	SpeedPath     string
	EventsPath    string
	TTLPath       string
}

// ScanSessionDir lists session directories under root, sorted by directory
// name. Non-directories and names that don't parse are errors, not skips,
// so a typo in a session name does not silently drop the session.
func ScanSessionDir(root string) ([]SessionFiles, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", root, err)
	}

	var sessions []SessionFiles
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		parts := strings.SplitN(entry.Name(), "_", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("session dir %q: want <animal>_<day>_<experiment>", entry.Name())
		}
		experiment := domain.ExperimentType(parts[2])
		if !experiment.IsValid() {
			return nil, fmt.Errorf("session dir %q: unknown experiment type %q", entry.Name(), parts[2])
		}

		dir := filepath.Join(root, entry.Name())
		sessions = append(sessions, SessionFiles{
			AnimalID:      parts[0],
			Day:           parts[1],
			Experiment:    experiment,
			SignalPath:    optionalFile(dir, "signal.csv"),
			ReferencePath: optionalFile(dir, "reference.csv"),
			SpeedPath:     optionalFile(dir, "speed.csv"),
			EventsPath:    optionalFile(dir, "events.csv"),
			TTLPath:       optionalFile(dir, "ttl.csv"),
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].AnimalID != sessions[j].AnimalID {
			return sessions[i].AnimalID < sessions[j].AnimalID
		}
		return sessions[i].Day < sessions[j].Day
	})
	return sessions, nil
}

// ManagerOptionsFor builds manager options from the located files. Missing
// files leave nil sources, which the Manager treats as no-ops.
func (f SessionFiles) ManagerOptionsFor(session *domain.Session, optoPowerMW float64) ManagerOptions {
	opts := ManagerOptions{
		Session:     session,
		OptoPowerMW: optoPowerMW,
	}
	if f.SignalPath != "" {
		opts.SignalSource = &CSVTraceSource{Path: f.SignalPath}
	}
	if f.ReferencePath != "" {
		opts.ReferenceSource = &CSVTraceSource{Path: f.ReferencePath}
	}
	if f.SpeedPath != "" {
		opts.SpeedSource = &CSVTraceSource{Path: f.SpeedPath}
	}
	if f.EventsPath != "" {
		opts.EventSource = &CSVEventSource{Path: f.EventsPath}
	}
	if f.TTLPath != "" {
		opts.TTLSource = &CSVTTLSource{Path: f.TTLPath}
	}
	return opts
}

func optionalFile(dir, name string) string {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
