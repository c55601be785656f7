package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// RunType represents the kind of run
type RunType string

const (
	RunTypeAnalyze   RunType = "ANALYZE"
	RunTypeProvision RunType = "PROVISION"
	RunTypeLink      RunType = "LINK"
)

// RunStatus represents the current state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

// RunMetadata is arbitrary JSON metadata stored with a run
type RunMetadata map[string]any

// Value implements driver.Valuer for database serialization
func (m RunMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database deserialization
func (m *RunMetadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("scan run metadata: unsupported type %T", value)
	}
}

// Run represents one invocation of analyze, provision or link
type Run struct {
	ID           string      `db:"id" json:"id"`
	RunType      RunType     `db:"run_type" json:"run_type"`
	Status       RunStatus   `db:"status" json:"status"`
	Profile      *string     `db:"profile" json:"profile,omitempty"`
	Region       string      `db:"region" json:"region"`
	TagKey       *string     `db:"tag_key" json:"tag_key,omitempty"`
	TagValue     *string     `db:"tag_value" json:"tag_value,omitempty"`
	ClusterID    *string     `db:"cluster_id" json:"cluster_id,omitempty"`
	ErrorCode    *string     `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage *string     `db:"error_message" json:"error_message,omitempty"`
	StartedAt    time.Time   `db:"started_at" json:"started_at"`
	EndedAt      *time.Time  `db:"ended_at" json:"ended_at,omitempty"`
	Metadata     RunMetadata `db:"metadata" json:"metadata,omitempty"`
}

// LinkOutcome records the result of linking one workspace
type LinkOutcome struct {
	ID             string    `db:"id" json:"id,omitempty"`
	RunID          string    `db:"run_id" json:"run_id,omitempty"`
	WorkspaceID    string    `db:"workspace_id" json:"workspace_id"`
	WorkspaceName  string    `db:"workspace_name" json:"workspace_name"`
	SubscriptionID string    `db:"subscription_id" json:"subscription_id"`
	Success        bool      `db:"success" json:"success"`
	AlreadyLinked  bool      `db:"already_linked" json:"already_linked"`
	Error          *string   `db:"error" json:"error,omitempty"`
	AttemptedAt    time.Time `db:"attempted_at" json:"attempted_at"`
}

// LinkSummary aggregates the outcomes of a linking batch
type LinkSummary struct {
	ClusterID string        `json:"cluster_id"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []LinkOutcome `json:"outcomes"`
	DryRun    bool          `json:"dry_run,omitempty"`
}

// Err combines the failed outcomes into one error, or returns nil when every
// link succeeded. Link failures never fail a run on their own.
func (s LinkSummary) Err() error {
	var result *multierror.Error
	for _, o := range s.Outcomes {
		if o.Success {
			continue
		}
		msg := "unknown error"
		if o.Error != nil {
			msg = *o.Error
		}
		result = multierror.Append(result, fmt.Errorf("%s: %s", o.WorkspaceName, msg))
	}
	return result.ErrorOrNil()
}
