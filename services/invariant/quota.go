package invariant

import (
	"context"
	"fmt"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/permission"
	"go.uber.org/zap"
)

// CountRole returns how many stored admins hold role
func (c *Checker) CountRole(ctx context.Context, role models.AdminRole) (int, error) {
	docs, err := c.list(ctx, models.CollectionAdmins, repositories.Where("role", string(role)))
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// RoleQuota checks a write against the per-role headcount limits. previous
// is nil on create. A write that introduces a new holder of a privileged role
// is rejected once RoleMax holders exist; moving an admin away from a
// privileged role is rejected when only RoleMin holders remain.
func (c *Checker) RoleQuota(ctx context.Context, proposed, previous *models.AdminUser) ([]services.Violation, error) {
	if previous != nil && previous.Role == proposed.Role {
		return nil, nil
	}

	var violations []services.Violation
	if proposed.Role.IsPrivileged() {
		count, err := c.CountRole(ctx, proposed.Role)
		if err != nil {
			return nil, err
		}
		if count >= c.cfg.RoleMax {
			c.logger.Info("role quota reached",
				zap.String("role", string(proposed.Role)),
				zap.Int("count", count),
			)
			violations = append(violations, services.Violationf(services.ErrorTypeQuotaViolation, "role",
				"maximum of %d %s allowed", c.cfg.RoleMax, plural(proposed.Role)))
		}
	}

	if previous != nil && previous.Role.IsPrivileged() {
		v, err := c.roleMinimum(ctx, previous.Role, "change role of")
		if err != nil {
			return nil, err
		}
		violations = append(violations, v...)
	}
	return violations, nil
}

// RoleMinimumOnDelete rejects deleting a privileged admin when only RoleMin holders remain
func (c *Checker) RoleMinimumOnDelete(ctx context.Context, existing *models.AdminUser) ([]services.Violation, error) {
	if !existing.Role.IsPrivileged() {
		return nil, nil
	}
	return c.roleMinimum(ctx, existing.Role, "delete")
}

func (c *Checker) roleMinimum(ctx context.Context, role models.AdminRole, verb string) ([]services.Violation, error) {
	count, err := c.CountRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if count > c.cfg.RoleMin {
		return nil, nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypeQuotaViolation, "role",
			"cannot %s %s - minimum of %d required", verb, permission.RoleLabel(role), c.cfg.RoleMin),
	}, nil
}

func plural(role models.AdminRole) string {
	return fmt.Sprintf("%ss", permission.RoleLabel(role))
}
