package policy

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/validation"
)

func registerApprovalHooks(e *Engine, deps Deps) {
	collections := []string{models.CollectionAdminApprovals}

	e.OnWrite(collections,
		approvalStructure,
		appendOnly("approval records"),
		approvalAuthor,
		gateWrite(deps.Checker),
	)
	e.OnDelete(collections, immutable("approval records"))
}

func approvalStructure(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var approval models.ApprovalRecord
	if v := decodeProposed(req.Proposed, &approval, "approval"); v != nil {
		return v, nil
	}
	return validation.Approval(&approval), nil
}

func approvalAuthor(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var approval models.ApprovalRecord
	if v := decodeProposed(req.Proposed, &approval, "approval"); v != nil {
		return v, nil
	}
	if approval.ApprovedBy == req.Caller {
		return nil, nil
	}
	return []services.Violation{
		services.NewViolation(services.ErrorTypePermissionDenied, "approvedBy", "approvedBy must match the caller"),
	}, nil
}
