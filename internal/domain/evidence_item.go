package domain

import "time"

// EvidenceItem is a piece of evidence (indicio) registered under a case file.
type EvidenceItem struct {
	ID           int64
	CaseFileID   int64
	Code         string
	Description  string
	Color        *string
	Size         *string
	Weight       *string
	Location     *string
	Observations *string
	TechnicianID int64
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Technician *UserSummary
}
