// Package permission implements the admin role model and the guards that
// decide whether a caller may write or delete a document.
//
// Every guard is a pure function of its inputs. Callers load the documents
// involved (the caller's own admin record, the previous version) and pass
// them in, so the guards never touch the store.
package permission

import (
	"fmt"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
)

// AllowedPermissions returns the permission set a role may hold.
// The second result is false for an unknown role.
func AllowedPermissions(role models.AdminRole) ([]models.Permission, bool) {
	switch role {
	case models.RoleViewer:
		return []models.Permission{models.PermissionContent}, true
	case models.RoleEditor:
		return []models.Permission{models.PermissionContent, models.PermissionUsers}, true
	case models.RoleManager:
		return []models.Permission{models.PermissionContent, models.PermissionUsers, models.PermissionSettings}, true
	case models.RoleSuperAdmin:
		return append([]models.Permission(nil), models.AllPermissions...), true
	}
	return nil, false
}

// RoleAllows reports whether role may hold p
func RoleAllows(role models.AdminRole, p models.Permission) bool {
	allowed, ok := AllowedPermissions(role)
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == p {
			return true
		}
	}
	return false
}

// CheckRolePermissions verifies the admin's permissions are a subset of its
// role's allowed set, and that a super admin holds the full set exactly.
func CheckRolePermissions(admin *models.AdminUser) []services.Violation {
	allowed, ok := AllowedPermissions(admin.Role)
	if !ok {
		return []services.Violation{
			services.Violationf(services.ErrorTypeStructuralInvalid, "role", "invalid role: %q", admin.Role),
		}
	}

	var violations []services.Violation
	seen := make(map[models.Permission]bool, len(admin.Permissions))
	for _, p := range admin.Permissions {
		if seen[p] {
			violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
				"permissions", "permission %s listed more than once", p))
			continue
		}
		seen[p] = true
		if !RoleAllows(admin.Role, p) {
			violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
				"permissions", "permission %s not allowed for role %s", p, admin.Role))
		}
	}

	if admin.Role == models.RoleSuperAdmin && len(seen) != len(allowed) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid,
			"permissions", "super admin must have all permissions"))
	}
	return violations
}

// RoleLabel is the human-readable name of a role used in messages
func RoleLabel(role models.AdminRole) string {
	switch role {
	case models.RoleViewer:
		return "viewer"
	case models.RoleEditor:
		return "editor"
	case models.RoleManager:
		return "manager"
	case models.RoleSuperAdmin:
		return "super admin"
	}
	return fmt.Sprintf("%q", string(role))
}
