package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicri/evidence-service/internal/domain"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

var (
	owner       = domain.Actor{ID: 5, Role: domain.RoleTechnician}
	otherTech   = domain.Actor{ID: 7, Role: domain.RoleTechnician}
	coordinator = domain.Actor{ID: 9, Role: domain.RoleCoordinator}
	admin       = domain.Actor{ID: 1, Role: domain.RoleAdmin}
)

func res(status domain.CaseFileStatus) Resource {
	return Resource{OwnerID: owner.ID, Status: status}
}

func TestEvaluate_TransitionTable(t *testing.T) {
	tests := []struct {
		name   string
		op     Operation
		actor  domain.Actor
		status domain.CaseFileStatus
		want   DenyReason
	}{
		{"owner updates while registering", OpCaseFileUpdate, owner, domain.CaseFileStatusRegistering, Allowed},
		{"other technician updates", OpCaseFileUpdate, otherTech, domain.CaseFileStatusRegistering, DeniedOwnership},
		{"coordinator updates", OpCaseFileUpdate, coordinator, domain.CaseFileStatusRegistering, DeniedRole},
		{"admin updates", OpCaseFileUpdate, admin, domain.CaseFileStatusRegistering, Allowed},
		{"update in review", OpCaseFileUpdate, owner, domain.CaseFileStatusInReview, DeniedState},

		{"owner submits", OpCaseFileSubmit, owner, domain.CaseFileStatusRegistering, Allowed},
		{"other technician submits", OpCaseFileSubmit, otherTech, domain.CaseFileStatusRegistering, DeniedOwnership},
		{"submit from rejected", OpCaseFileSubmit, owner, domain.CaseFileStatusRejected, DeniedState},

		{"coordinator approves", OpCaseFileApprove, coordinator, domain.CaseFileStatusInReview, Allowed},
		{"admin approves", OpCaseFileApprove, admin, domain.CaseFileStatusInReview, Allowed},
		{"owner approves own file", OpCaseFileApprove, owner, domain.CaseFileStatusInReview, DeniedRole},
		{"approve while registering", OpCaseFileApprove, coordinator, domain.CaseFileStatusRegistering, DeniedState},

		{"coordinator rejects", OpCaseFileReject, coordinator, domain.CaseFileStatusInReview, Allowed},
		{"technician rejects", OpCaseFileReject, owner, domain.CaseFileStatusInReview, DeniedRole},

		{"owner reopens", OpCaseFileReopen, owner, domain.CaseFileStatusRejected, Allowed},
		{"other technician reopens", OpCaseFileReopen, otherTech, domain.CaseFileStatusRejected, DeniedOwnership},
		{"coordinator reopens", OpCaseFileReopen, coordinator, domain.CaseFileStatusRejected, DeniedRole},
		{"reopen in review", OpCaseFileReopen, owner, domain.CaseFileStatusInReview, DeniedState},

		{"admin deletes registering file", OpCaseFileDelete, admin, domain.CaseFileStatusRegistering, Allowed},
		{"owner deletes", OpCaseFileDelete, owner, domain.CaseFileStatusRegistering, DeniedRole},

		{"owner adds evidence", OpEvidenceCreate, owner, domain.CaseFileStatusRegistering, Allowed},
		{"admin adds evidence", OpEvidenceCreate, admin, domain.CaseFileStatusRegistering, Allowed},
		{"other technician deletes evidence", OpEvidenceDelete, otherTech, domain.CaseFileStatusRegistering, DeniedOwnership},
		{"coordinator updates evidence", OpEvidenceUpdate, coordinator, domain.CaseFileStatusRegistering, DeniedRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.op, tt.actor, res(tt.status))
			assert.Equal(t, tt.want, got.Reason)
		})
	}
}

func TestEvaluate_ApprovedIsTerminal(t *testing.T) {
	ops := []Operation{
		OpCaseFileUpdate, OpCaseFileSubmit, OpCaseFileApprove, OpCaseFileReject,
		OpCaseFileReopen, OpCaseFileDelete, OpEvidenceCreate, OpEvidenceUpdate, OpEvidenceDelete,
	}
	for _, op := range ops {
		for _, actor := range []domain.Actor{owner, otherTech, coordinator, admin} {
			d := Evaluate(op, actor, res(domain.CaseFileStatusApproved))
			assert.Equal(t, DeniedState, d.Reason, "op %q by %s", op, actor.Role)
			assert.True(t, apperrors.IsCode(d.Err(), apperrors.CodeInvalidStateTransition))
		}
	}
}

func TestEvaluate_EvidenceStateGuardPrecedesRole(t *testing.T) {
	for _, status := range []domain.CaseFileStatus{
		domain.CaseFileStatusInReview, domain.CaseFileStatusApproved, domain.CaseFileStatusRejected,
	} {
		for _, op := range []Operation{OpEvidenceCreate, OpEvidenceUpdate, OpEvidenceDelete} {
			for _, actor := range []domain.Actor{owner, otherTech, coordinator, admin} {
				d := Evaluate(op, actor, res(status))
				assert.Equal(t, DeniedState, d.Reason)
			}
		}
	}
}

func TestEvaluate_CreateIgnoresResource(t *testing.T) {
	assert.True(t, Evaluate(OpCaseFileCreate, otherTech, Resource{}).Allowed())
	assert.True(t, Evaluate(OpCaseFileCreate, admin, Resource{}).Allowed())
	assert.Equal(t, DeniedRole, Evaluate(OpCaseFileCreate, coordinator, Resource{}).Reason)
}

func TestDecisionErr(t *testing.T) {
	d := Evaluate(OpCaseFileApprove, coordinator, res(domain.CaseFileStatusRegistering))
	err := d.Err()
	require.Error(t, err)

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInvalidStateTransition, domainErr.Code)
	assert.Equal(t, "EN_REGISTRO", domainErr.Details["current_status"])
	assert.Equal(t, []string{"EN_REVISION"}, domainErr.Details["required_status"])

	forbidden := Evaluate(OpCaseFileUpdate, otherTech, res(domain.CaseFileStatusRegistering)).Err()
	assert.True(t, apperrors.IsCode(forbidden, apperrors.CodeForbidden))

	assert.NoError(t, Evaluate(OpCaseFileUpdate, owner, res(domain.CaseFileStatusRegistering)).Err())
	assert.True(t, apperrors.IsCode(Evaluate("archive", admin, Resource{}).Err(), apperrors.CodeForbidden))
}

func TestTarget(t *testing.T) {
	assert.Equal(t, domain.CaseFileStatusInReview, Target(OpCaseFileSubmit, domain.CaseFileStatusRegistering))
	assert.Equal(t, domain.CaseFileStatusRegistering, Target(OpCaseFileReopen, domain.CaseFileStatusRejected))
	assert.Equal(t, domain.CaseFileStatusRegistering, Target(OpCaseFileUpdate, domain.CaseFileStatusRegistering))
	assert.True(t, CanTransition(OpCaseFileApprove, domain.CaseFileStatusInReview))
	assert.False(t, CanTransition(OpCaseFileApprove, domain.CaseFileStatusApproved))
}
