package permission

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
)

// CheckEscalation rejects assigning the super admin role unless the caller is
// the document's declared creator. Keeping an existing super admin's role is
// not an assignment.
func CheckEscalation(caller string, proposed, previous *models.AdminUser) []services.Violation {
	if proposed.Role != models.RoleSuperAdmin {
		return nil
	}
	if previous != nil && previous.Role == models.RoleSuperAdmin {
		return nil
	}
	if caller == proposed.CreatedBy {
		return nil
	}
	return []services.Violation{
		services.NewViolation(services.ErrorTypePermissionDenied, "role", "only creator can assign super_admin role"),
	}
}

// CheckCreatorUnchanged rejects an update that rewrites the creator identity
func CheckCreatorUnchanged(previousCreator, proposedCreator string) []services.Violation {
	if previousCreator == proposedCreator {
		return nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypePermissionDenied, "createdBy",
			"createdBy cannot change from %s to %s", previousCreator, proposedCreator),
	}
}

// CheckAdminModification decides whether caller may write the admin record
// stored under targetKey. callerAdmin is the caller's own admin record, nil
// when the caller has none. previous is the target's current record, nil on create.
func CheckAdminModification(caller, targetKey string, callerAdmin, previous *models.AdminUser) []services.Violation {
	if caller == targetKey {
		return nil
	}
	if callerAdmin == nil || !callerAdmin.HasPermission(models.PermissionSuper) {
		return []services.Violation{
			services.NewViolation(services.ErrorTypePermissionDenied, "", "only admins holding the super permission can modify other admins"),
		}
	}
	if previous != nil && previous.IsSuperAdmin() && !callerAdmin.IsSuperAdmin() {
		return []services.Violation{
			services.NewViolation(services.ErrorTypePermissionDenied, "role", "only super admins can modify other super admins"),
		}
	}
	return nil
}

// CheckAdminDelete allows an admin record to be deleted by its owner or by a super admin
func CheckAdminDelete(caller, targetKey string, callerAdmin *models.AdminUser) []services.Violation {
	if caller == targetKey {
		return nil
	}
	if callerAdmin != nil && callerAdmin.IsSuperAdmin() {
		return nil
	}
	return []services.Violation{
		services.NewViolation(services.ErrorTypePermissionDenied, "", "only super admins can delete other admins"),
	}
}

// CheckCauseDelete allows deleting a cause only while it is inactive and has raised nothing
func CheckCauseDelete(cause *models.Cause) []services.Violation {
	var violations []services.Violation
	if cause.IsActive {
		violations = append(violations, services.NewViolation(services.ErrorTypePermissionDenied,
			"isActive", "cannot delete an active cause"))
	}
	if cause.Raised() != 0 {
		violations = append(violations, services.Violationf(services.ErrorTypePermissionDenied,
			"raisedAmount", "cannot delete a cause that has raised %.2f", cause.Raised()))
	}
	return violations
}

// CheckWaqfDelete allows only the creator to delete a waqf that is no longer active
func CheckWaqfDelete(caller string, waqf *models.Waqf) []services.Violation {
	var violations []services.Violation
	if waqf.Status == models.WaqfStatusActive {
		violations = append(violations, services.NewViolation(services.ErrorTypePermissionDenied,
			"status", "cannot delete an active waqf"))
	}
	if caller != waqf.CreatedBy {
		violations = append(violations, services.NewViolation(services.ErrorTypePermissionDenied,
			"createdBy", "only the creator can delete a waqf"))
	}
	return violations
}

// CheckWaqfCreate requires a new waqf to be created in the caller's own name,
// unless the caller is an active admin acting on a donor's behalf.
func CheckWaqfCreate(caller string, proposed *models.Waqf, callerAdmin *models.AdminUser) []services.Violation {
	if proposed.CreatedBy == caller || isActiveAdmin(callerAdmin) {
		return nil
	}
	return []services.Violation{
		services.NewViolation(services.ErrorTypePermissionDenied, "createdBy", "createdBy must match the caller"),
	}
}

// CheckWaqfUpdate lets an active admin change anything. A creator who is not
// an admin is held to the editable fields; anyone else is denied. proposed
// and previous are the raw top-level fields of the two versions.
func CheckWaqfUpdate(caller, createdBy string, proposed, previous map[string]interface{}, callerAdmin *models.AdminUser) []services.Violation {
	if isActiveAdmin(callerAdmin) {
		return nil
	}
	if caller != createdBy {
		return []services.Violation{
			services.NewViolation(services.ErrorTypePermissionDenied, "", "only the creator or an active admin can modify a waqf"),
		}
	}

	protected := ProtectedChanges(proposed, previous, models.WaqfCreatorEditableFields)
	if len(protected) == 0 {
		return nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypePermissionDenied, strings.Join(protected, ","),
			"unauthorized changes to protected fields: %s", strings.Join(protected, ", ")),
	}
}

// ProtectedChanges returns, sorted, the top-level fields that differ between
// the two versions and are not in editable.
func ProtectedChanges(proposed, previous map[string]interface{}, editable []string) []string {
	allowed := make(map[string]bool, len(editable))
	for _, f := range editable {
		allowed[f] = true
	}

	var changed []string
	for _, field := range ChangedFields(proposed, previous) {
		if !allowed[field] {
			changed = append(changed, field)
		}
	}
	return changed
}

// ChangedFields returns, sorted, every top-level field whose value differs
// between the two versions, including added and removed fields.
func ChangedFields(proposed, previous map[string]interface{}) []string {
	keys := make(map[string]struct{}, len(proposed)+len(previous))
	for k := range proposed {
		keys[k] = struct{}{}
	}
	for k := range previous {
		keys[k] = struct{}{}
	}

	var changed []string
	for k := range keys {
		before, hadBefore := previous[k]
		after, hasAfter := proposed[k]
		if hadBefore != hasAfter || !sameValue(before, after) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// sameValue compares decoded JSON values. Numbers decoded as json.Number are
// compared numerically so 100 and 100.0 are equal.
func sameValue(a, b interface{}) bool {
	an, aok := a.(json.Number)
	bn, bok := b.(json.Number)
	if aok && bok {
		af, aerr := an.Float64()
		bf, berr := bn.Float64()
		if aerr == nil && berr == nil {
			return af == bf
		}
		return an == bn
	}

	am, aok := a.(map[string]interface{})
	bm, bok := b.(map[string]interface{})
	if aok && bok {
		return len(ChangedFields(am, bm)) == 0
	}

	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !sameValue(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func isActiveAdmin(admin *models.AdminUser) bool {
	return admin != nil && admin.Active
}
