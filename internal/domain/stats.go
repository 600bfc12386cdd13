package domain

// GeneralStats aggregates case files by status within a creation range.
type GeneralStats struct {
	TotalCaseFiles int64 `json:"total_expedientes"`
	Registering    int64 `json:"en_registro"`
	InReview       int64 `json:"en_revision"`
	Approved       int64 `json:"aprobados"`
	Rejected       int64 `json:"rechazados"`
	TotalEvidence  int64 `json:"total_indicios"`
}

// TechnicianStats is the per-technician breakdown.
type TechnicianStats struct {
	ID             int64  `json:"id"`
	FullName       string `json:"full_name"`
	TotalCaseFiles int64  `json:"total_expedientes"`
	Approved       int64  `json:"aprobados"`
	Rejected       int64  `json:"rechazados"`
	Registering    int64  `json:"en_registro"`
	InReview       int64  `json:"en_revision"`
	TotalEvidence  int64  `json:"total_indicios"`
}

// StatusCount is the number of case files in one status.
type StatusCount struct {
	Status CaseFileStatus `json:"status"`
	Count  int64          `json:"count"`
}

// MonthlyCount is the number of case files created in one month.
type MonthlyCount struct {
	Month int   `json:"month"`
	Count int64 `json:"count"`
}
