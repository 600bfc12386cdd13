package domain

import "time"

// AuditEntry is an immutable record of a committed mutation.
type AuditEntry struct {
	ID         int64
	UserID     *int64
	Action     string
	EntityType string
	EntityID   *int64
	Details    map[string]any
	IPAddress  *string
	CreatedAt  time.Time
}

// Audited entity types.
const (
	EntityTypeCaseFile     = "expediente"
	EntityTypeEvidenceItem = "indicio"
)

// AuditDetailCaseFileID is the details key linking an evidence entry to its case file.
const AuditDetailCaseFileID = "expediente_id"
