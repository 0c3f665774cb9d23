package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"photometry-lab/internal/domain"
)

// ComputeSessionID computes a deterministic session_id using SHA256.
// Formula: SHA256(animal_id|day|experiment_type)
// Returns hex-encoded hash (64 characters).
func ComputeSessionID(animalID, day string, experiment domain.ExperimentType) string {
	data := fmt.Sprintf("%s|%s|%s", animalID, day, string(experiment))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
