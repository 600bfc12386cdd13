// Package policy decides whether an actor may perform an operation on a case
// file or its evidence items. Evaluation is pure: callers load the resource,
// call Evaluate and act on the Decision.
package policy

import (
	"github.com/dicri/evidence-service/internal/domain"
	apperrors "github.com/dicri/evidence-service/pkg/util"
)

// Operation identifies a guarded mutation.
type Operation string

const (
	OpCaseFileCreate  Operation = "create"
	OpCaseFileUpdate  Operation = "update"
	OpCaseFileSubmit  Operation = "submit"
	OpCaseFileApprove Operation = "approve"
	OpCaseFileReject  Operation = "reject"
	OpCaseFileReopen  Operation = "reopen"
	OpCaseFileDelete  Operation = "delete"

	OpEvidenceCreate Operation = "create evidence on"
	OpEvidenceUpdate Operation = "update evidence on"
	OpEvidenceDelete Operation = "delete evidence on"
)

// Resource is the slice of case file state the policy looks at.
type Resource struct {
	OwnerID int64
	Status  domain.CaseFileStatus
}

// ResourceOf extracts the policy view of a case file.
func ResourceOf(cf *domain.CaseFile) Resource {
	return Resource{OwnerID: cf.TechnicianID, Status: cf.Status}
}

// DenyReason classifies a negative decision.
type DenyReason int

const (
	Allowed DenyReason = iota
	DeniedState
	DeniedRole
	DeniedOwnership
	DeniedUnknownOperation
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Reason   DenyReason
	Op       Operation
	Current  domain.CaseFileStatus
	Required []domain.CaseFileStatus
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool {
	return d.Reason == Allowed
}

// Err converts a negative decision into the matching typed error; nil when allowed.
func (d Decision) Err() error {
	switch d.Reason {
	case Allowed:
		return nil
	case DeniedState:
		required := make([]string, 0, len(d.Required))
		for _, s := range d.Required {
			required = append(required, string(s))
		}
		return apperrors.NewInvalidStateTransition(string(d.Op), string(d.Current), required)
	case DeniedOwnership:
		return apperrors.NewForbidden("only the assigned technician or an administrator may " + string(d.Op) + " this case file")
	default:
		return apperrors.NewForbidden("role not allowed to " + string(d.Op) + " case files")
	}
}

type rule struct {
	// from lists the statuses the case file must be in; empty means no state guard.
	from []domain.CaseFileStatus
	// to is the status after a successful transition; empty when status is unchanged.
	to domain.CaseFileStatus
	// anyResource roles pass regardless of ownership.
	anyResource []domain.Role
	// owner roles pass only when the actor owns the case file.
	owner []domain.Role
}

var registering = []domain.CaseFileStatus{domain.CaseFileStatusRegistering}

var rules = map[Operation]rule{
	OpCaseFileCreate: {
		anyResource: []domain.Role{domain.RoleTechnician, domain.RoleAdmin},
	},
	OpCaseFileUpdate: {
		from:        registering,
		anyResource: []domain.Role{domain.RoleAdmin},
		owner:       []domain.Role{domain.RoleTechnician},
	},
	OpCaseFileSubmit: {
		from:        registering,
		to:          domain.CaseFileStatusInReview,
		anyResource: []domain.Role{domain.RoleAdmin},
		owner:       []domain.Role{domain.RoleTechnician},
	},
	OpCaseFileApprove: {
		from:        []domain.CaseFileStatus{domain.CaseFileStatusInReview},
		to:          domain.CaseFileStatusApproved,
		anyResource: []domain.Role{domain.RoleCoordinator, domain.RoleAdmin},
	},
	OpCaseFileReject: {
		from:        []domain.CaseFileStatus{domain.CaseFileStatusInReview},
		to:          domain.CaseFileStatusRejected,
		anyResource: []domain.Role{domain.RoleCoordinator, domain.RoleAdmin},
	},
	OpCaseFileReopen: {
		from:        []domain.CaseFileStatus{domain.CaseFileStatusRejected},
		to:          domain.CaseFileStatusRegistering,
		anyResource: []domain.Role{domain.RoleAdmin},
		owner:       []domain.Role{domain.RoleTechnician},
	},
	OpCaseFileDelete: {
		from: []domain.CaseFileStatus{
			domain.CaseFileStatusRegistering,
			domain.CaseFileStatusInReview,
			domain.CaseFileStatusRejected,
		},
		anyResource: []domain.Role{domain.RoleAdmin},
	},
	OpEvidenceCreate: {
		from:        registering,
		anyResource: []domain.Role{domain.RoleAdmin},
		owner:       []domain.Role{domain.RoleTechnician},
	},
	OpEvidenceUpdate: {
		from:        registering,
		anyResource: []domain.Role{domain.RoleAdmin},
		owner:       []domain.Role{domain.RoleTechnician},
	},
	OpEvidenceDelete: {
		from:        registering,
		anyResource: []domain.Role{domain.RoleAdmin},
		owner:       []domain.Role{domain.RoleTechnician},
	},
}

// Evaluate applies the state guard first and the role/ownership gate second.
// For OpCaseFileCreate the resource is ignored.
func Evaluate(op Operation, actor domain.Actor, res Resource) Decision {
	r, ok := rules[op]
	if !ok {
		return Decision{Reason: DeniedUnknownOperation, Op: op}
	}
	if len(r.from) > 0 && !containsStatus(r.from, res.Status) {
		return Decision{Reason: DeniedState, Op: op, Current: res.Status, Required: r.from}
	}
	if containsRole(r.anyResource, actor.Role) {
		return Decision{Reason: Allowed, Op: op, Current: res.Status}
	}
	if containsRole(r.owner, actor.Role) {
		if res.OwnerID == actor.ID {
			return Decision{Reason: Allowed, Op: op, Current: res.Status}
		}
		return Decision{Reason: DeniedOwnership, Op: op, Current: res.Status}
	}
	return Decision{Reason: DeniedRole, Op: op, Current: res.Status}
}

// Target returns the status a successful op moves the case file to.
func Target(op Operation, current domain.CaseFileStatus) domain.CaseFileStatus {
	if r, ok := rules[op]; ok && r.to != "" {
		return r.to
	}
	return current
}

// CanTransition reports whether op is reachable from status, ignoring the actor.
func CanTransition(op Operation, status domain.CaseFileStatus) bool {
	r, ok := rules[op]
	if !ok {
		return false
	}
	return len(r.from) == 0 || containsStatus(r.from, status)
}

func containsStatus(set []domain.CaseFileStatus, s domain.CaseFileStatus) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsRole(set []domain.Role, r domain.Role) bool {
	for _, candidate := range set {
		if candidate == r {
			return true
		}
	}
	return false
}
