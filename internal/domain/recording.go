package domain

// TwoChannelRecording is a pair of traces from one photometry session:
// the calcium-dependent signal channel and the isosbestic reference channel.
// Both share a common timestamp axis (same length, same timestamps within
// tolerance); the import layer guarantees alignment before handing the
// recording to the conditioner.
type TwoChannelRecording struct {
	SessionID string
	Signal    Trace // calcium-dependent channel (e.g. 470 nm)
	Reference Trace // isosbestic control channel (e.g. 410 nm)
}

// Aligned reports whether the two channels share a timestamp axis: equal
// length and pairwise timestamp difference below tol seconds.
func (r TwoChannelRecording) Aligned(tol float64) bool {
	if r.Signal.Len() != r.Reference.Len() {
		return false
	}
	for i := range r.Signal.Timestamps {
		d := r.Signal.Timestamps[i] - r.Reference.Timestamps[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}
