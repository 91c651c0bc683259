package validation

import (
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/permission"
)

// Admin validates an admin account: email format, creator, and the
// role/permission table.
func Admin(admin *models.AdminUser) []services.Violation {
	violations := Struct(admin)
	violations = append(violations, permission.CheckRolePermissions(admin)...)
	return violations
}

// Approval validates a single quorum vote
func Approval(approval *models.ApprovalRecord) []services.Violation {
	violations := Struct(approval)
	if approval.TargetAdmin != "" && approval.TargetAdmin == approval.ApprovedBy {
		violations = append(violations, services.NewViolation(services.ErrorTypePermissionDenied,
			"approvedBy", "admins cannot approve changes to their own account"))
	}
	return violations
}

// AuditRecord validates an admin audit entry
func AuditRecord(record *models.AuditRecord) []services.Violation {
	violations := Struct(record)
	if record.Action != "" && !record.Action.IsValid() {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"action", "invalid audit action: %s", record.Action))
	}
	return violations
}

// WaqfAudit validates a waqf audit entry
func WaqfAudit(record *models.WaqfAudit) []services.Violation {
	violations := Struct(record)
	if record.Action != "" && !record.Action.IsValid() {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"action", "invalid waqf audit action: %s", record.Action))
	}
	return violations
}
