package domain

import "time"

// CaseFileStatus enumerates lifecycle states for case files (expedientes).
type CaseFileStatus string

const (
	CaseFileStatusRegistering CaseFileStatus = "EN_REGISTRO"
	CaseFileStatusInReview    CaseFileStatus = "EN_REVISION"
	CaseFileStatusApproved    CaseFileStatus = "APROBADO"
	CaseFileStatusRejected    CaseFileStatus = "RECHAZADO"
)

// CaseFileStatuses lists every status in workflow order.
var CaseFileStatuses = []CaseFileStatus{
	CaseFileStatusRegistering,
	CaseFileStatusInReview,
	CaseFileStatusApproved,
	CaseFileStatusRejected,
}

// Valid reports whether s is one of the persisted status values.
func (s CaseFileStatus) Valid() bool {
	switch s {
	case CaseFileStatusRegistering, CaseFileStatusInReview, CaseFileStatusApproved, CaseFileStatusRejected:
		return true
	default:
		return false
	}
}

// CaseFile is the aggregate for an investigative case file.
type CaseFile struct {
	ID              int64
	CaseNumber      string
	Title           string
	Description     *string
	Location        *string
	IncidentDate    *time.Time
	Status          CaseFileStatus
	TechnicianID    int64
	CoordinatorID   *int64
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	SubmittedAt     *time.Time
	ReviewedAt      *time.Time
	ApprovedAt      *time.Time

	// Hydrated on reads.
	Technician    *UserSummary
	Coordinator   *UserSummary
	EvidenceItems []EvidenceItem
}
