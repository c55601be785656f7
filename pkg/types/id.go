package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// runIDPrefix marks run IDs; the KSUID after it sorts by creation time
const runIDPrefix = "run_"

// GenerateRunID returns a new time-sortable run ID
func GenerateRunID() string {
	return runIDPrefix + ksuid.New().String()
}

// ParseRunID checks id is a run ID and returns when it was generated
func ParseRunID(id string) (time.Time, error) {
	raw, ok := strings.CutPrefix(id, runIDPrefix)
	if !ok {
		return time.Time{}, fmt.Errorf("run ID %q lacks the %s prefix", id, runIDPrefix)
	}
	k, err := ksuid.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("run ID %q: %w", id, err)
	}
	return k.Time(), nil
}

// GenerateID returns a UUIDv7 for child records (link outcomes, usage
// rows, audit events), so they index in insertion order
func GenerateID() string {
	return uuid.Must(uuid.NewV7()).String()
}
