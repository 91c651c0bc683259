package invariant

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"go.uber.org/zap"
)

// CountQualifyingApprovals counts distinct approvers of targetKey who are
// super admins at query time. Approvers without an admin record do not count.
func (c *Checker) CountQualifyingApprovals(ctx context.Context, targetKey string) (int, error) {
	docs, err := c.list(ctx, models.CollectionAdminApprovals, repositories.Where("targetAdmin", targetKey))
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(docs))
	count := 0
	for _, doc := range docs {
		var approval models.ApprovalRecord
		if err := doc.Decode(&approval); err != nil {
			c.logger.Warn("skipping undecodable approval", zap.String("key", doc.Key), zap.Error(err))
			continue
		}
		if approval.TargetAdmin != targetKey || approval.ApprovedBy == "" || seen[approval.ApprovedBy] {
			continue
		}
		seen[approval.ApprovedBy] = true

		approver, err := c.LoadAdmin(ctx, approval.ApprovedBy)
		if err != nil {
			return 0, err
		}
		if approver != nil && approver.IsSuperAdmin() {
			count++
		}
	}
	return count, nil
}

// ApprovalQuorum rejects toggling an admin's active flag without enough
// qualifying approvals
func (c *Checker) ApprovalQuorum(ctx context.Context, targetKey string, activating bool) ([]services.Violation, error) {
	count, err := c.CountQualifyingApprovals(ctx, targetKey)
	if err != nil {
		return nil, err
	}
	if count >= c.cfg.ApprovalQuorum {
		return nil, nil
	}

	change := "Deactivation"
	if activating {
		change = "Activation"
	}
	c.logger.Info("approval quorum not met",
		zap.String("target", targetKey),
		zap.Int("approvals", count),
		zap.Int("required", c.cfg.ApprovalQuorum),
	)
	return []services.Violation{
		services.Violationf(services.ErrorTypeQuorumNotMet, "active",
			"%s requires approval from at least %d super admins (found %d)", change, c.cfg.ApprovalQuorum, count),
	}, nil
}
