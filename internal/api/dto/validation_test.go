package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicri/evidence-service/internal/domain"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

func strPtr(s string) *string { return &s }

// invalidFields returns the field names reported by a validation error.
func invalidFields(t *testing.T, err error) []string {
	t.Helper()
	if err == nil {
		return nil
	}
	require.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed), "unexpected error %v", err)
	fields, ok := apperrors.ToDomainError(err).Details["fields"].(map[string]any)
	require.True(t, ok)
	out := make([]string, 0, len(fields))
	for name := range fields {
		out = append(out, name)
	}
	return out
}

func TestCreateCaseFileRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  CreateCaseFileRequest
		want []string
	}{
		{"valid", CreateCaseFileRequest{CaseNumber: "EXP-2024-001", Title: "Robbery"}, nil},
		{"missing everything", CreateCaseFileRequest{}, []string{"case_number", "title"}},
		{"lowercase number", CreateCaseFileRequest{CaseNumber: "exp-1", Title: "Robbery"}, []string{"case_number"}},
		{"short number", CreateCaseFileRequest{CaseNumber: "E1", Title: "Robbery"}, []string{"case_number"}},
		{"short title", CreateCaseFileRequest{CaseNumber: "EXP-1", Title: "Ro"}, []string{"title"}},
		{"long location", CreateCaseFileRequest{CaseNumber: "EXP-1", Title: "Robbery", Location: strPtr(string(make([]byte, 501)))}, []string{"location"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, invalidFields(t, tt.req.Validate()))
		})
	}
}

func TestUpdateCaseFileRequest_OmittedFieldsAreValid(t *testing.T) {
	assert.NoError(t, (&UpdateCaseFileRequest{}).Validate())
	assert.ElementsMatch(t, []string{"title"}, invalidFields(t, (&UpdateCaseFileRequest{Title: strPtr("")}).Validate()))
}

func TestEvidenceRequests_Validate(t *testing.T) {
	valid := CreateEvidenceRequest{CaseFileID: 1, Code: "IND-001", Description: "Glass fragment"}
	assert.NoError(t, valid.Validate())

	bad := CreateEvidenceRequest{Code: "ind 1", Description: "ab", Color: strPtr(string(make([]byte, 101)))}
	assert.ElementsMatch(t, []string{"expediente_id", "code", "description", "color"}, invalidFields(t, bad.Validate()))

	assert.NoError(t, (&UpdateEvidenceRequest{Observations: strPtr("")}).Validate())
	assert.ElementsMatch(t, []string{"code"}, invalidFields(t, (&UpdateEvidenceRequest{Code: strPtr("")}).Validate()))
}

func TestRejectCaseFileRequest_Validate(t *testing.T) {
	assert.ElementsMatch(t, []string{"rejection_reason"}, invalidFields(t, (&RejectCaseFileRequest{}).Validate()))
	assert.ElementsMatch(t, []string{"rejection_reason"}, invalidFields(t, (&RejectCaseFileRequest{RejectionReason: "too short"}).Validate()))
	assert.NoError(t, (&RejectCaseFileRequest{RejectionReason: "Missing chain of custody"}).Validate())
}

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
		want []string
	}{
		{"valid", RegisterRequest{Username: "tecnico_1", Email: "t1@dicri.test", Password: "Passw0rd!", FullName: "Tecnico Uno"}, nil},
		{"weak password", RegisterRequest{Username: "tecnico_1", Email: "t1@dicri.test", Password: "password1", FullName: "Tecnico Uno"}, []string{"password"}},
		{"bad username and email", RegisterRequest{Username: "te-1", Email: "not-an-email", Password: "Passw0rd!", FullName: "Tecnico Uno"}, []string{"username", "email"}},
		{"unknown role", RegisterRequest{Username: "tecnico_1", Email: "t1@dicri.test", Password: "Passw0rd!", FullName: "Tecnico Uno", Role: "JEFE"}, []string{"role"}},
		{"display name in email", RegisterRequest{Username: "tecnico_1", Email: "Tec <t1@dicri.test>", Password: "Passw0rd!", FullName: "Tecnico Uno"}, []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, invalidFields(t, tt.req.Validate()))
		})
	}
}

func TestUserRequests_Validate(t *testing.T) {
	create := CreateUserRequest{Username: "coord", Email: "coord@dicri.test", Password: "password123", FullName: "Coordinator", Role: domain.RoleCoordinator}
	assert.NoError(t, create.Validate())

	create.Role = ""
	assert.ElementsMatch(t, []string{"role"}, invalidFields(t, create.Validate()))

	role := domain.Role("JEFE")
	assert.ElementsMatch(t, []string{"role", "password"}, invalidFields(t, (&UpdateUserRequest{Role: &role, Password: strPtr("short")}).Validate()))

	assert.ElementsMatch(t, []string{"new_password"}, invalidFields(t, (&ChangePasswordRequest{CurrentPassword: "x", NewPassword: "alllowercase1!"}).Validate()))
}
