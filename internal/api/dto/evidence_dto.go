package dto

import (
	"time"

	"github.com/dicri/evidence-service/internal/domain"
	"github.com/dicri/evidence-service/internal/service"
)

// CreateEvidenceRequest payload.
type CreateEvidenceRequest struct {
	CaseFileID   int64   `json:"expediente_id"`
	Code         string  `json:"code"`
	Description  string  `json:"description"`
	Color        *string `json:"color"`
	Size         *string `json:"size"`
	Weight       *string `json:"weight"`
	Location     *string `json:"location"`
	Observations *string `json:"observations"`
}

// Validate checks the request shape.
func (r *CreateEvidenceRequest) Validate() error {
	f := fieldErrors{}
	if r.CaseFileID <= 0 {
		f.add("expediente_id", "must be a positive integer")
	}
	if f.required("code", r.Code) {
		f.length("code", r.Code, 1, 50)
		f.pattern("code", r.Code, upperCodePattern, "uppercase letters, digits and hyphens")
	}
	if f.required("description", r.Description) {
		f.length("description", r.Description, 3, 0)
	}
	validateEvidenceOptionals(f, r.Color, r.Size, r.Weight, r.Location)
	return f.err()
}

// Input converts the request to the service input.
func (r *CreateEvidenceRequest) Input() service.EvidenceCreateInput {
	return service.EvidenceCreateInput{
		CaseFileID:   r.CaseFileID,
		Code:         r.Code,
		Description:  r.Description,
		Color:        r.Color,
		Size:         r.Size,
		Weight:       r.Weight,
		Location:     r.Location,
		Observations: r.Observations,
	}
}

// UpdateEvidenceRequest is a partial update.
type UpdateEvidenceRequest struct {
	Code         *string `json:"code"`
	Description  *string `json:"description"`
	Color        *string `json:"color"`
	Size         *string `json:"size"`
	Weight       *string `json:"weight"`
	Location     *string `json:"location"`
	Observations *string `json:"observations"`
}

// Validate checks the request shape.
func (r *UpdateEvidenceRequest) Validate() error {
	f := fieldErrors{}
	if r.Code != nil {
		f.length("code", *r.Code, 1, 50)
		f.pattern("code", *r.Code, upperCodePattern, "uppercase letters, digits and hyphens")
	}
	if r.Description != nil {
		f.length("description", *r.Description, 3, 0)
	}
	validateEvidenceOptionals(f, r.Color, r.Size, r.Weight, r.Location)
	return f.err()
}

// Patch converts the request to the service patch.
func (r *UpdateEvidenceRequest) Patch() service.EvidencePatch {
	return service.EvidencePatch{
		Code:         r.Code,
		Description:  r.Description,
		Color:        r.Color,
		Size:         r.Size,
		Weight:       r.Weight,
		Location:     r.Location,
		Observations: r.Observations,
	}
}

func validateEvidenceOptionals(f fieldErrors, color, size, weight, location *string) {
	for field, value := range map[string]*string{"color": color, "size": size, "weight": weight} {
		if value != nil {
			f.length(field, *value, 0, 100)
		}
	}
	if location != nil {
		f.length("location", *location, 0, 500)
	}
}

// EvidenceItemResponse is the evidence projection.
type EvidenceItemResponse struct {
	ID           int64                `json:"id"`
	CaseFileID   int64                `json:"expediente_id"`
	Code         string               `json:"code"`
	Description  string               `json:"description"`
	Color        *string              `json:"color"`
	Size         *string              `json:"size"`
	Weight       *string              `json:"weight"`
	Location     *string              `json:"location"`
	Observations *string              `json:"observations"`
	TechnicianID int64                `json:"technician_id"`
	Technician   *UserSummaryResponse `json:"technician"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// NewEvidenceItemResponse maps an evidence item.
func NewEvidenceItemResponse(item *domain.EvidenceItem) EvidenceItemResponse {
	return EvidenceItemResponse{
		ID:           item.ID,
		CaseFileID:   item.CaseFileID,
		Code:         item.Code,
		Description:  item.Description,
		Color:        item.Color,
		Size:         item.Size,
		Weight:       item.Weight,
		Location:     item.Location,
		Observations: item.Observations,
		TechnicianID: item.TechnicianID,
		Technician:   newUserSummaryResponse(item.Technician),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

// NewEvidenceItemListResponse maps a listing.
func NewEvidenceItemListResponse(items []domain.EvidenceItem) []EvidenceItemResponse {
	out := make([]EvidenceItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewEvidenceItemResponse(&items[i]))
	}
	return out
}
