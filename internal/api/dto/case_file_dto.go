package dto

import (
	"time"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/service"
)

// CreateCaseFileRequest payload.
type CreateCaseFileRequest struct {
	CaseNumber   string  `json:"case_number"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	Location     *string `json:"location"`
	IncidentDate *string `json:"incident_date"`
}

// Validate checks the request shape.
func (r *CreateCaseFileRequest) Validate() error {
	f := fieldErrors{}
	if f.required("case_number", r.CaseNumber) {
		f.length("case_number", r.CaseNumber, 3, 50)
		f.pattern("case_number", r.CaseNumber, upperCodePattern, "uppercase letters, digits and hyphens")
	}
	if f.required("title", r.Title) {
		f.length("title", r.Title, 3, 255)
	}
	if r.Location != nil {
		f.length("location", *r.Location, 0, 500)
	}
	return f.err()
}

// Input converts the request to the service input.
func (r *CreateCaseFileRequest) Input() service.CaseFileCreateInput {
	return service.CaseFileCreateInput{
		CaseNumber:   r.CaseNumber,
		Title:        r.Title,
		Description:  r.Description,
		Location:     r.Location,
		IncidentDate: r.IncidentDate,
	}
}

// UpdateCaseFileRequest is a partial update; omitted fields are unchanged.
type UpdateCaseFileRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Location     *string `json:"location"`
	IncidentDate *string `json:"incident_date"`
}

// Validate checks the request shape.
func (r *UpdateCaseFileRequest) Validate() error {
	f := fieldErrors{}
	if r.Title != nil {
		f.length("title", *r.Title, 3, 255)
	}
	if r.Location != nil {
		f.length("location", *r.Location, 0, 500)
	}
	return f.err()
}

// Patch converts the request to the service patch.
func (r *UpdateCaseFileRequest) Patch() service.CaseFilePatch {
	return service.CaseFilePatch{
		Title:        r.Title,
		Description:  r.Description,
		Location:     r.Location,
		IncidentDate: r.IncidentDate,
	}
}

// RejectCaseFileRequest payload.
type RejectCaseFileRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

// Validate checks the request shape.
func (r *RejectCaseFileRequest) Validate() error {
	f := fieldErrors{}
	if f.required("rejection_reason", r.RejectionReason) {
		f.length("rejection_reason", r.RejectionReason, service.MinRejectionReasonLength, 0)
	}
	return f.err()
}

// UserSummaryResponse is the embedded user projection.
type UserSummaryResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// CaseFileResponse is the hydrated case file.
type CaseFileResponse struct {
	ID              int64                  `json:"id"`
	CaseNumber      string                 `json:"case_number"`
	Title           string                 `json:"title"`
	Description     *string                `json:"description"`
	Location        *string                `json:"location"`
	IncidentDate    *time.Time             `json:"incident_date"`
	Status          domain.CaseFileStatus  `json:"status"`
	TechnicianID    int64                  `json:"technician_id"`
	CoordinatorID   *int64                 `json:"coordinator_id"`
	RejectionReason *string                `json:"rejection_reason"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	SubmittedAt     *time.Time             `json:"submitted_at"`
	ReviewedAt      *time.Time             `json:"reviewed_at"`
	ApprovedAt      *time.Time             `json:"approved_at"`
	Technician      *UserSummaryResponse   `json:"technician"`
	Coordinator     *UserSummaryResponse   `json:"coordinator"`
	EvidenceItems   []EvidenceItemResponse `json:"indicios"`
}

// AuditEntryResponse is one history row.
type AuditEntryResponse struct {
	ID         int64          `json:"id"`
	UserID     *int64         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   *int64         `json:"entity_id"`
	Details    map[string]any `json:"details"`
	IPAddress  *string        `json:"ip_address"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewCaseFileResponse maps the domain aggregate.
func NewCaseFileResponse(cf *domain.CaseFile) CaseFileResponse {
	items := make([]EvidenceItemResponse, 0, len(cf.EvidenceItems))
	for i := range cf.EvidenceItems {
		items = append(items, NewEvidenceItemResponse(&cf.EvidenceItems[i]))
	}
	return CaseFileResponse{
		ID:              cf.ID,
		CaseNumber:      cf.CaseNumber,
		Title:           cf.Title,
		Description:     cf.Description,
		Location:        cf.Location,
		IncidentDate:    cf.IncidentDate,
		Status:          cf.Status,
		TechnicianID:    cf.TechnicianID,
		CoordinatorID:   cf.CoordinatorID,
		RejectionReason: cf.RejectionReason,
		CreatedAt:       cf.CreatedAt,
		UpdatedAt:       cf.UpdatedAt,
		SubmittedAt:     cf.SubmittedAt,
		ReviewedAt:      cf.ReviewedAt,
		ApprovedAt:      cf.ApprovedAt,
		Technician:      newUserSummaryResponse(cf.Technician),
		Coordinator:     newUserSummaryResponse(cf.Coordinator),
		EvidenceItems:   items,
	}
}

// NewCaseFileListResponse maps a listing.
func NewCaseFileListResponse(list []domain.CaseFile) []CaseFileResponse {
	out := make([]CaseFileResponse, 0, len(list))
	for i := range list {
		out = append(out, NewCaseFileResponse(&list[i]))
	}
	return out
}

// NewAuditEntryResponses maps history rows.
func NewAuditEntryResponses(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Details:    e.Details,
			IPAddress:  e.IPAddress,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

func newUserSummaryResponse(u *domain.UserSummary) *UserSummaryResponse {
	if u == nil {
		return nil
	}
	return &UserSummaryResponse{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role}
}
