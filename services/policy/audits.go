package policy

import (
	"context"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
	"github.com/upb/waqf-policy-engine/services/audit"
	"github.com/upb/waqf-policy-engine/services/invariant"
	"github.com/upb/waqf-policy-engine/services/validation"
)

// auditEntry is the part of an audit record the shared checks need
type auditEntry struct {
	PerformedBy string `json:"performedBy"`
	Timestamp   int64  `json:"timestamp"`
}

type auditHooks struct {
	checker *invariant.Checker
	emitter *audit.Emitter
}

func registerAuditHooks(e *Engine, deps Deps) {
	h := &auditHooks{checker: deps.Checker, emitter: deps.Emitter}

	e.OnWrite([]string{models.CollectionAdminAudit}, adminAuditStructure)
	e.OnWrite([]string{models.CollectionWaqfAudit}, waqfAuditStructure)

	collections := []string{models.CollectionAdminAudit, models.CollectionWaqfAudit}
	e.OnWrite(collections,
		appendOnly("audit records"),
		auditPerformer,
		h.recent,
		gateWrite(deps.Checker),
		h.rate,
	)
	e.OnDelete(collections, immutable("audit records"))

	e.OnCommit([]string{models.CollectionAdminAudit}, h.alertAdmin)
	e.OnCommit([]string{models.CollectionWaqfAudit}, h.alertWaqf)
}

func adminAuditStructure(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var record models.AuditRecord
	if v := decodeProposed(req.Proposed, &record, "audit"); v != nil {
		return v, nil
	}
	return validation.AuditRecord(&record), nil
}

func waqfAuditStructure(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var record models.WaqfAudit
	if v := decodeProposed(req.Proposed, &record, "waqf audit"); v != nil {
		return v, nil
	}
	return validation.WaqfAudit(&record), nil
}

func auditPerformer(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var entry auditEntry
	if v := decodeProposed(req.Proposed, &entry, "audit"); v != nil {
		return v, nil
	}
	if entry.PerformedBy == req.Caller {
		return nil, nil
	}
	return []services.Violation{
		services.NewViolation(services.ErrorTypePermissionDenied, "performedBy", "performedBy must match the caller"),
	}, nil
}

func (h *auditHooks) recent(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var entry auditEntry
	if v := decodeProposed(req.Proposed, &entry, "audit"); v != nil {
		return v, nil
	}
	return h.checker.AuditTimestamp(entry.Timestamp), nil
}

func (h *auditHooks) rate(ctx context.Context, req *WriteRequest) ([]services.Violation, error) {
	var entry auditEntry
	if v := decodeProposed(req.Proposed, &entry, "audit"); v != nil {
		return v, nil
	}
	return h.checker.AuditRate(ctx, req.Collection, entry.PerformedBy)
}

func (h *auditHooks) alertAdmin(ctx context.Context, ev *CommitEvent) error {
	var record models.AuditRecord
	if err := decodeStored(ev.Document, &record, "audit"); err != nil {
		return err
	}
	return h.emitter.AlertAdmin(ctx, &record)
}

func (h *auditHooks) alertWaqf(ctx context.Context, ev *CommitEvent) error {
	var record models.WaqfAudit
	if err := decodeStored(ev.Document, &record, "waqf audit"); err != nil {
		return err
	}
	return h.emitter.AlertWaqf(ctx, &record)
}
