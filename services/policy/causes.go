package policy

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/permission"
	"github.com/upb/waqf-policy-engine/services/transition"
	"github.com/upb/waqf-policy-engine/services/validation"
	"go.uber.org/zap"
)

type causeHooks struct {
	logger *zap.Logger
}

func registerCauseHooks(e *Engine, deps Deps) {
	h := &causeHooks{logger: deps.Logger}
	collections := []string{models.CollectionCauses}

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

func (h *causeHooks) decode(req *WriteRequest) (*models.Cause, *models.Cause, []services.Violation, error) {
	var next models.Cause
	if v := decodeProposed(req.Proposed, &next, "cause"); v != nil {
		return nil, nil, v, nil
	}
	if req.Previous == nil {
		return &next, nil, nil, nil
	}
	var previous models.Cause
	if err := decodeStored(req.Previous, &previous, "cause"); err != nil {
		return nil, nil, nil, err
	}
	return &next, &previous, nil, nil
}

func (h *causeHooks) structure(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, _, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	return validation.Cause(next), nil
}

func (h *causeHooks) authorize(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, previous, v, err := h.decode(req)
	if err != nil || v != nil || previous == nil {
		return v, err
	}
	return permission.CheckCreatorUnchanged(previous.CreatedBy, next.CreatedBy), nil
}

func (h *causeHooks) transition(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	next, _, v, err := h.decode(req)
	if err != nil || v != nil {
		return v, err
	}
	return transition.CheckCause(next), nil
}

func (h *causeHooks) authorizeDelete(ctx context.Context, req *DeleteRequest) ([]services.Violation, error) {
	var cause models.Cause
	if err := decodeStored(req.Current, &cause, "cause"); err != nil {
		return nil, err
	}
	return permission.CheckCauseDelete(&cause), nil
}

func (h *causeHooks) committed(ctx context.Context, ev *CommitEvent) error {
	fields := []zap.Field{
		zap.String("cause_id", ev.Key),
		zap.String("operation", string(ev.Operation)),
		zap.String("caller", ev.Caller),
	}
	if ev.Document != nil {
		var cause models.Cause
		if err := ev.Document.Decode(&cause); err == nil {
			fields = append(fields, zap.String("status", string(cause.Status)), zap.Bool("active", cause.IsActive))
		}
	}
	h.logger.Info("cause committed", fields...)
	return nil
}
