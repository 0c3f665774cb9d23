package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"photometry-lab/internal/domain"
)

// ComputeEventID computes a deterministic event_id using SHA256.
// Formula: SHA256(session_id|type|label|onset_us)
// Onset is quantized to microseconds so equal events hash equally across
// float formatting differences.
func ComputeEventID(sessionID string, eventType domain.EventType, label string, onsetTime float64) string {
	onsetUs := int64(onsetTime * 1e6)
	data := fmt.Sprintf("%s|%s|%s|%d", sessionID, string(eventType), label, onsetUs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeBoutID computes a deterministic bout_id using SHA256.
// Formula: SHA256(session_id|start_us|end_us)
func ComputeBoutID(sessionID string, startTime, endTime float64) string {
	data := fmt.Sprintf("%s|%d|%d", sessionID, int64(startTime*1e6), int64(endTime*1e6))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
