package policy

import (
	"context"
	"strings"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/repositories"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/audit"
	"github.com/upb/waqf-policy-engine/services/invariant"
	"github.com/upb/waqf-policy-engine/services/permission"
	"github.com/upb/waqf-policy-engine/services/validation"
)

type adminHooks struct {
	checker *invariant.Checker
	store   invariant.Reader
	emitter *audit.Emitter
}

func registerAdminHooks(e *Engine, deps Deps) {
	h := &adminHooks{checker: deps.Checker, store: deps.Checker.Store(), emitter: deps.Emitter}
	collections := []string{models.CollectionAdmins}

	e.OnWrite(collections,
		h.structure,
		h.uniqueEmail,
		h.authorize,
		gateWrite(deps.Checker),
		h.quota,
		h.quorum,
	)
	e.OnDelete(collections,
		gateDelete(deps.Checker),
		h.authorizeDelete,
		h.minimum,
	)
	e.OnCommit(collections, h.committed)
}

func (h *adminHooks) decode(req *WriteRequest) (*models.AdminUser, *models.AdminUser, []services.Violation, error) {
	var next models.AdminUser
	if v := decodeProposed(req.Proposed, &next, "admin"); v != nil {
		return nil, nil, v, nil
	}
	if req.Previous == nil {
		return &next, nil, nil, nil
	}
	var previous models.AdminUser
	if err := decodeStored(req.Previous, &previous, "admin"); err != nil {
		return nil, nil, nil, err
	}
	return &next, &previous, nil, nil
}

func (h *adminHooks) structure(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, _, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	return validation.Admin(next), nil
}

func (h *adminHooks) uniqueEmail(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, _, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}

	docs, err := h.store.List(ctx, models.CollectionAdmins, repositories.ListFilter{})
	if err != nil {
		return nil, services.WrapStoreError("list admins", err)
	}
	for _, doc := range docs {
		if doc.Key == req.Key {
			continue
		}
		var other struct {
			Email string `json:"email"`
		}
		if doc.Decode(&other) != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(other.Email), strings.TrimSpace(next.Email)) {
			return []services.Violation{
				services.Violationf(services.ErrorTypeConflict, "email", "email %s already exists", next.Email),
			}, nil
		}
	}
	return nil, nil
}

func (h *adminHooks) authorize(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, previous, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}

	if previous != nil {
		if v := permission.CheckCreatorUnchanged(previous.CreatedBy, next.CreatedBy); v != nil {
			return v, nil
		}
	}

	var callerAdmin *models.AdminUser
	if req.Caller != req.Key {
		if callerAdmin, err = h.checker.LoadAdmin(ctx, req.Caller); err != nil {
			return nil, err
		}
	}
	if v := permission.CheckAdminModification(req.Caller, req.Key, callerAdmin, previous); v != nil {
		return v, nil
	}
	return permission.CheckEscalation(req.Caller, next, previous), nil
}

func (h *adminHooks) quota(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, previous, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	return h.checker.RoleQuota(ctx, next, previous)
}

func (h *adminHooks) quorum(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, previous, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	if previous == nil || previous.Active == next.Active {
		return nil, nil
	}
	return h.checker.ApprovalQuorum(ctx, req.Key, next.Active)
}

func (h *adminHooks) authorizeDelete(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
	var callerAdmin *models.AdminUser
	if req.Caller != req.Key {
		var err error
		if callerAdmin, err = h.checker.LoadAdmin(ctx, req.Caller); err != nil {
			return nil, err
		}
	}
	return permission.CheckAdminDelete(req.Caller, req.Key, callerAdmin), nil
}

func (h *adminHooks) minimum(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
	var existing models.AdminUser
	if err := decodeStored(req.Current, &existing, "admin"); err != nil {
		return nil, err
	}
	return h.checker.RoleMinimumOnDelete(ctx, &existing)
}

func (h *adminHooks) committed(ctx context.Context, ev *CommitEvent) error {
	if ev.Operation == OperationDelete {
		return h.emitter.AdminDeleted(ctx, ev.Caller, ev.Key)
	}

	var next models.AdminUser
	if err := decodeStored(ev.Document, &next, "admin"); err != nil {
		return err
	}
	var previous *models.AdminUser
	if ev.Previous != nil {
		previous = &models.AdminUser{}
		if err := decodeStored(ev.Previous, previous, "admin"); err != nil {
			return err
		}
	}
	return h.emitter.AdminChanged(ctx, ev.Caller, ev.Key, &next, previous)
}
