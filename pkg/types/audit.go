package types

import "time"

// AuditEventStatus represents the outcome of an audited action
type AuditEventStatus string

const (
	AuditEventStatusSuccess AuditEventStatus = "SUCCESS"
	AuditEventStatusFailure AuditEventStatus = "FAILURE"
)

// Audited actions
const (
	AuditActionClusterCreate = "cluster.create"
	AuditActionClusterAdopt  = "cluster.adopt"
	AuditActionWorkspaceLink = "workspace.link"
	AuditActionUsageAnalyze  = "usage.analyze"
)

// AuditEvent represents an immutable audit log entry for a mutating or
// billing-relevant action
type AuditEvent struct {
	ID              string           `db:"id" json:"id"`
	Actor           string           `db:"actor" json:"actor"` // Azure principal (UPN, app ID or object ID)
	Action          string           `db:"action" json:"action"`
	TargetClusterID *string          `db:"target_cluster_id" json:"target_cluster_id,omitempty"`
	TargetRunID     *string          `db:"target_run_id" json:"target_run_id,omitempty"`
	Status          AuditEventStatus `db:"status" json:"status"`
	Metadata        RunMetadata      `db:"metadata" json:"metadata,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}
