// Package transition holds the status state machines for causes and waqfs.
package transition

import (
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
)

// CompletionRatio is the share of the goal a cause must raise before it can complete
const CompletionRatio = 0.8

// completionEpsilon keeps the boundary inclusive under float rounding
const completionEpsilon = 1e-9

// CheckCause enforces the side-conditions of the cause's status. Any status
// may follow any other; only the activity and metadata rules gate a change.
func CheckCause(cause *models.Cause) []services.Violation {
	var violations []services.Violation

	switch cause.Status {
	case models.CauseStatusApproved:
		if !cause.HasApprover() {
			violations = append(violations, services.NewViolation(services.ErrorTypeIllegalTransition,
				"approvedBy", "approved causes require approvedBy and approvedAt"))
		}
	case models.CauseStatusCompleted:
		violations = append(violations, inactive(cause)...)
		if cause.Raised() < cause.GoalAmount*CompletionRatio-completionEpsilon {
			violations = append(violations, services.Violationf(services.ErrorTypeIllegalTransition,
				"raisedAmount", "completed causes must raise at least 80%% of the goal (raised %.2f of %.2f)",
				cause.Raised(), cause.GoalAmount))
		}
	case models.CauseStatusDraft, models.CauseStatusPending,
		models.CauseStatusRejected, models.CauseStatusPaused:
		violations = append(violations, inactive(cause)...)
	default:
		violations = append(violations, services.Violationf(services.ErrorTypeIllegalTransition,
			"status", "unknown cause status: %s", cause.Status))
	}
	return violations
}

func inactive(cause *models.Cause) []services.Violation {
	if !cause.IsActive {
		return nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypeIllegalTransition, "isActive",
			"%s causes cannot be active", cause.Status),
	}
}

// CheckWaqf enforces the waqf lifecycle. previous is nil on create.
// changed lists the top-level fields that differ between the versions.
func CheckWaqf(proposed, previous *models.Waqf, changed []string) []services.Violation {
	if previous == nil {
		if proposed.Status == models.WaqfStatusCompleted {
			return []services.Violation{
				services.NewViolation(services.ErrorTypeIllegalTransition, "status", "a waqf cannot be created completed"),
			}
		}
		return nil
	}

	if previous.Status.IsTerminal() {
		if len(changed) == 0 {
			return nil
		}
		return []services.Violation{
			services.NewViolation(services.ErrorTypeIllegalTransition, "status", "cannot modify completed waqf"),
		}
	}

	if proposed.Status != models.WaqfStatusCompleted || previous.Status == proposed.Status {
		return nil
	}
	switch previous.Status {
	case models.WaqfStatusActive, models.WaqfStatusPaused:
		return nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypeIllegalTransition, "status",
			"can only complete from active or paused, not %s", previous.Status),
	}
}
