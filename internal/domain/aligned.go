package domain

// AlignedWindow is a trace snippet extracted around one event onset and
// resampled onto the canonical relative-time grid. Produced transiently by
// the aligner and consumed by aggregation.
type AlignedWindow struct {
	Event    Event
	PreTime  float64   // seconds before onset
	PostTime float64   // seconds after onset
	RelTimes []float64 // canonical grid, from -PreTime to +PostTime
	Values   []float64 // trace values interpolated onto RelTimes
}

// ConditionKey groups aligned windows for aggregation:
// experiment type x event type x label.
type ConditionKey struct {
	Experiment ExperimentType
	EventType  EventType
	Label      string
}

// AnimalMean is one animal's mean response within a condition group.
type AnimalMean struct {
	AnimalID string
	NEvents  int
	Mean     []float64 // over the group's canonical grid
}

// ConditionGroupStats is the aggregated event-aligned statistic for one
// condition. Per-animal means are computed first, then the grand mean and
// SEM across per-animal means, so animals with more events do not dominate.
// Corresponds to condition_group_stats table in ClickHouse.
type ConditionGroupStats struct {
	Key       ConditionKey
	RelTimes  []float64
	PerAnimal []AnimalMean
	GrandMean []float64
	SEM       []float64
	NAnimals  int
	NEvents   int
	// LowN marks groups with fewer animals than the configured minimum.
	// Such groups are retained and reported; exclusion is a downstream call.
	LowN bool
}
