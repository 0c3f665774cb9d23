package alignment

import (
	"fmt"
	"math"
	"sort"

	"photometry-lab/internal/domain"
	"photometry-lab/internal/sigproc"
)

// KeyFunc assigns an aligned window to a condition group. Callers decide
// the grouping policy; the aggregator only averages.
type KeyFunc func(domain.AlignedWindow) domain.ConditionKey

// Aggregate computes per-condition group statistics from aligned windows.
// Averaging is two level: windows collapse to one mean per animal, then the
// grand mean and SEM are taken across animal means, so an animal
// contributing many events weighs the same as one contributing few. Groups
// with fewer than minAnimals animals are flagged LowN but still returned.
//
// All windows within a group must share the same grid length; a mismatch is
// an error, not a silent resample.
func Aggregate(windows []domain.AlignedWindow, keyOf KeyFunc, minAnimals int) ([]domain.ConditionGroupStats, error) {
	if keyOf == nil {
		return nil, fmt.Errorf("nil key function: %w", sigproc.ErrInvalidParameter)
	}

	type group struct {
		relTimes []float64
		byAnimal map[string][]domain.AlignedWindow
		nEvents  int
	}
	groups := make(map[domain.ConditionKey]*group)

	for _, w := range windows {
		key := keyOf(w)
		g, ok := groups[key]
		if !ok {
			g = &group{relTimes: w.RelTimes, byAnimal: make(map[string][]domain.AlignedWindow)}
			groups[key] = g
		}
		if len(w.Values) != len(g.relTimes) {
			return nil, fmt.Errorf("group %v: window for event %s has %d samples, group grid has %d: %w",
				key, w.Event.EventID, len(w.Values), len(g.relTimes), sigproc.ErrShapeMismatch)
		}
		g.byAnimal[w.Event.AnimalID] = append(g.byAnimal[w.Event.AnimalID], w)
		g.nEvents++
	}

	stats := make([]domain.ConditionGroupStats, 0, len(groups))
	for key, g := range groups {
		gridLen := len(g.relTimes)

		animals := make([]string, 0, len(g.byAnimal))
		for id := range g.byAnimal {
			animals = append(animals, id)
		}
		sort.Strings(animals)

		perAnimal := make([]domain.AnimalMean, 0, len(animals))
		for _, id := range animals {
			ws := g.byAnimal[id]
			mean := make([]float64, gridLen)
			for _, w := range ws {
				for i, v := range w.Values {
					mean[i] += v
				}
			}
			for i := range mean {
				mean[i] /= float64(len(ws))
			}
			perAnimal = append(perAnimal, domain.AnimalMean{AnimalID: id, NEvents: len(ws), Mean: mean})
		}

		grand := make([]float64, gridLen)
		for _, am := range perAnimal {
			for i, v := range am.Mean {
				grand[i] += v
			}
		}
		for i := range grand {
			grand[i] /= float64(len(perAnimal))
		}

		// SEM across animal means, sample standard deviation. Undefined for
		// a single animal; reported as zeros.
		sem := make([]float64, gridLen)
		if len(perAnimal) > 1 {
			for i := range sem {
				var ss float64
				for _, am := range perAnimal {
					d := am.Mean[i] - grand[i]
					ss += d * d
				}
				sd := math.Sqrt(ss / float64(len(perAnimal)-1))
				sem[i] = sd / math.Sqrt(float64(len(perAnimal)))
			}
		}

		stats = append(stats, domain.ConditionGroupStats{
			Key:       key,
			RelTimes:  g.relTimes,
			PerAnimal: perAnimal,
			GrandMean: grand,
			SEM:       sem,
			NAnimals:  len(perAnimal),
			NEvents:   g.nEvents,
			LowN:      len(perAnimal) < minAnimals,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		a, b := stats[i].Key, stats[j].Key
		if a.Experiment != b.Experiment {
			return a.Experiment < b.Experiment
		}
		if a.EventType != b.EventType {
			return a.EventType < b.EventType
		}
		return a.Label < b.Label
	})
	return stats, nil
}
