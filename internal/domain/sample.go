package domain

// Channel identifies which trace a stored fluorescence sample belongs to.
type Channel string

const (
	ChannelSignal    Channel = "signal"    // calcium-dependent channel
	ChannelReference Channel = "reference" // isosbestic channel
	ChannelDFF       Channel = "dff"
	ChannelZScore    Channel = "zscore"
)

// IsValid checks if the channel is a known value.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelSignal, ChannelReference, ChannelDFF, ChannelZScore:
		return true
	}
	return false
}

// SpeedSample is one running-wheel speed measurement.
// Corresponds to speed_samples table in ClickHouse.
type SpeedSample struct {
	SessionID string
	Time      float64 // seconds from session start
	Speed     float64 // cm/s, signed for wheel direction
}

// FluorSample is one raw fluorescence measurement on a channel.
// Corresponds to fluor_samples table in ClickHouse.
type FluorSample struct {
	SessionID string
	Channel   Channel // signal or reference
	Time      float64 // seconds from session start
	Value     float64 // arbitrary fluorescence units
}

// ConditionedSample is one derived dF/F or Z-score value.
// Corresponds to conditioned_samples table in ClickHouse.
type ConditionedSample struct {
	SessionID string
	Channel   Channel // dff or zscore
	Time      float64
	Value     float64
	Invalid   bool // baseline collapse at this sample; Value is 0
}
