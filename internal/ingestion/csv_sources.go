package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"photometry-lab/internal/domain"
)

// ErrMalformedRow is returned when a CSV row cannot be parsed.
var ErrMalformedRow = errors.New("malformed csv row")

// CSVTraceSource reads a two-column (time,value) CSV file into a trace.
// A non-numeric first row is treated as a header and skipped.
type CSVTraceSource struct {
	Path string
}

// Fetch reads and parses the whole file.
func (s *CSVTraceSource) Fetch(ctx context.Context) (domain.Trace, error) {
	rows, err := readCSV(ctx, s.Path, 2)
	if err != nil {
		return domain.Trace{}, err
	}

	trace := domain.Trace{
		Timestamps: make([]float64, 0, len(rows)),
		Values:     make([]float64, 0, len(rows)),
	}
	for i, row := range rows {
		t, err1 := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		v, err2 := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err1 != nil || err2 != nil {
			if i == 0 {
				continue // header
			}
			return domain.Trace{}, fmt.Errorf("%w: %s row %d", ErrMalformedRow, s.Path, i+1)
		}
		trace.Timestamps = append(trace.Timestamps, t)
		trace.Values = append(trace.Values, v)
	}
	return trace, nil
}

// CSVEventSource reads an event table with columns
// (type,label,onset_time,offset_time). The offset column may be empty for
// instantaneous events. Identity fields are left blank for the Manager.
type CSVEventSource struct {
	Path string
}

// Fetch reads and parses the whole file.
func (s *CSVEventSource) Fetch(ctx context.Context) ([]*domain.Event, error) {
	rows, err := readCSV(ctx, s.Path, 4)
	if err != nil {
		return nil, err
	}

	events := make([]*domain.Event, 0, len(rows))
	for i, row := range rows {
		onset, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, s.Path, i+1)
		}

		e := &domain.Event{
			Type:      domain.EventType(strings.TrimSpace(row[0])),
			Label:     strings.TrimSpace(row[1]),
			OnsetTime: onset,
		}
		if off := strings.TrimSpace(row[3]); off != "" {
			v, err := strconv.ParseFloat(off, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, s.Path, i+1)
			}
			e.OffsetTime = &v
		}
		if !e.Type.IsValid() {
			return nil, fmt.Errorf("%w: %s row %d: unknown event type %q", ErrMalformedRow, s.Path, i+1, row[0])
		}
		events = append(events, e)
	}
	return events, nil
}

// CSVTTLSource reads raw digital edges with columns (time,name,state).
type CSVTTLSource struct {
	Path string
}

// Fetch reads and parses the whole file.
func (s *CSVTTLSource) Fetch(ctx context.Context) ([]TTLEdge, error) {
	rows, err := readCSV(ctx, s.Path, 3)
	if err != nil {
		return nil, err
	}

	edges := make([]TTLEdge, 0, len(rows))
	for i, row := range rows {
		t, err1 := strconv.ParseFloat(strings.TrimSpace(row[0]), 64)
		state, err2 := strconv.Atoi(strings.TrimSpace(row[2]))
		if err1 != nil || err2 != nil {
			if i == 0 {
				continue // header
			}
			return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, s.Path, i+1)
		}
		edges = append(edges, TTLEdge{
			Time:  t,
			Name:  strings.TrimSpace(row[1]),
			State: state,
		})
	}
	return edges, nil
}

func readCSV(ctx context.Context, path string, wantFields int) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantFields
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
