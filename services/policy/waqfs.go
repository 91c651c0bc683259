package policy

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/audit"
	"github.com/upb/waqf-policy-engine/services/invariant"
	"github.com/upb/waqf-policy-engine/services/permission"
	"github.com/upb/waqf-policy-engine/services/transition"
	"github.com/upb/waqf-policy-engine/services/validation"
	"go.uber.org/zap"
)

type waqfHooks struct {
	checker *invariant.Checker
	emitter *audit.Emitter
	logger  *zap.Logger
}

func registerWaqfHooks(e *Engine, deps Deps) {
	h := &waqfHooks{checker: deps.Checker, emitter: deps.Emitter, logger: deps.Logger}
	collections := []string{models.CollectionWaqfs}

	e.OnWrite(collections,
		h.structure,
		h.authorize,
		h.transition,
		gateWrite(deps.Checker),
	)
	e.OnDelete(collections,
		h.authorizeDelete,
		gateDelete(deps.Checker),
	)
	e.OnCommit(collections, h.committed)
}

func (h *waqfHooks) decode(req *WriteRequest) (*models.Waqf, *models.Waqf, []services.Violation, error) {
	var next models.Waqf
	if v := decodeProposed(req.Proposed, &next, "waqf"); v != nil {
		return nil, nil, v, nil
	}
	if req.Previous == nil {
		return &next, nil, nil, nil
	}
	var previous models.Waqf
	if err := decodeStored(req.Previous, &previous, "waqf"); err != nil {
		return nil, nil, nil, err
	}
	return &next, &previous, nil, nil
}

func (h *waqfHooks) structure(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, _, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	return validation.Waqf(next, validation.WaqfOptions{
		Create:            req.IsCreate(),
		MinInitialCapital: h.checker.Config().MinInitialCapital,
	}), nil
}

func (h *waqfHooks) authorize(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, previous, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}

	callerAdmin, err := h.checker.LoadAdmin(ctx, req.Caller)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return permission.CheckWaqfCreate(req.Caller, next, callerAdmin), nil
	}

	if v := permission.CheckCreatorUnchanged(previous.CreatedBy, next.CreatedBy); v != nil {
		return v, nil
	}
	after, err := req.Proposed.Fields()
	if err != nil {
		return nil, services.WrapInternal("decode fields", err)
	}
	before, err := req.Previous.Fields()
	if err != nil {
		return nil, services.WrapInternal("decode fields", err)
	}
	return permission.CheckWaqfUpdate(req.Caller, previous.CreatedBy, after, before, callerAdmin), nil
}

func (h *waqfHooks) transition(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, previous, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	if previous == nil {
		return transition.CheckWaqf(next, nil, nil), nil
	}
	changed, err := changedFields(req.Proposed, req.Previous)
	if err != nil {
		return nil, err
	}
	return transition.CheckWaqf(next, previous, changed), nil
}

func (h *waqfHooks) authorizeDelete(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
	var waqf models.Waqf
	if err := decodeStored(req.Current, &waqf, "waqf"); err != nil {
		return nil, err
	}
	return permission.CheckWaqfDelete(req.Caller, &waqf), nil
}

func (h *waqfHooks) committed(ctx context.Context, ev *CommitEvent) error {
	if ev.Operation == OperationDelete {
		h.logger.Info("waqf deleted", zap.String("waqf_id", ev.Key), zap.String("caller", ev.Caller))
		return nil
	}

	var next models.Waqf
	if err := decodeStored(ev.Document, &next, "waqf"); err != nil {
		return err
	}
	if ev.Previous == nil {
		return h.emitter.WaqfChanged(ctx, ev.Caller, ev.Key, &next, nil, nil)
	}

	var previous models.Waqf
	if err := decodeStored(ev.Previous, &previous, "waqf"); err != nil {
		return err
	}
	changed, err := changedFields(ev.Document, ev.Previous)
	if err != nil {
		return err
	}
	return h.emitter.WaqfChanged(ctx, ev.Caller, ev.Key, &next, &previous, changed)
}
