// Package util holds small helpers shared across the service.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a 32-character random hex identifier, used where stored
// object names must be unguessable and collision-free. A non-empty prefix
// is joined with an underscore, e.g. "sf" -> "sf_9f86d081...".
func NewID(prefix string) string {
	var raw [16]byte
	_, _ = rand.Read(raw[:])
	id := hex.EncodeToString(raw[:])
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
