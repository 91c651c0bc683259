// Package audit writes the audit trail of admin and waqf changes and raises
// alerts for the actions operators must hear about.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/waqf-policy-engine/internal/shared"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services/notify"
	"go.uber.org/zap"
)

// Recorder appends a new document to a collection on behalf of caller. The
// guarded write pipeline implements it, so audit records pass the same
// assertions as any other write.
type Recorder interface {
	Append(ctx context.Context, collection, key string, record interface{}, caller string) error
}

// Emitter builds audit records and critical alerts
type Emitter struct {
	recorder Recorder
	notifier notify.Notifier
	clock    shared.Clock
	logger   *zap.Logger
	newKey   func() string
}

// NewEmitter creates a new Emitter instance
func NewEmitter(recorder Recorder, notifier notify.Notifier, clock shared.Clock, logger *zap.Logger) *Emitter {
	return &Emitter{
		recorder: recorder,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		newKey:   uuid.NewString,
	}
}

// AdminActions derives the audit actions for an admin write. previous is nil
// on create. An update that touches none of role, permissions or the active
// flag is a plain update.
func AdminActions(next, previous *models.AdminUser) []models.AuditAction {
	if previous == nil {
		return []models.AuditAction{models.AuditActionCreateAdmin}
	}

	var actions []models.AuditAction
	if next.Role != previous.Role {
		actions = append(actions, models.AuditActionRoleChange)
	}
	if !next.SamePermissions(previous) {
		actions = append(actions, models.AuditActionPermissionChange)
	}
	if next.Active != previous.Active {
		if next.Active {
			actions = append(actions, models.AuditActionActivateAdmin)
		} else {
			actions = append(actions, models.AuditActionDeactivateAdmin)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, models.AuditActionUpdateAdmin)
	}
	return actions
}

// AdminChanged records the audit trail of a committed admin write
func (e *Emitter) AdminChanged(ctx context.Context, caller, key string, next, previous *models.AdminUser) error {
	now := shared.NowMillis(e.clock)
	for _, action := range AdminActions(next, previous) {
		record := models.NewAuditRecord(action, caller, key, now)
		if action == models.AuditActionRoleChange {
			record.WithDetails(fmt.Sprintf("role %s -> %s", previous.Role, next.Role))
		}
		if err := e.RecordAdmin(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// AdminDeleted records the removal of an admin
func (e *Emitter) AdminDeleted(ctx context.Context, caller, key string) error {
	return e.RecordAdmin(ctx, models.NewAuditRecord(models.AuditActionDeleteAdmin, caller, key, shared.NowMillis(e.clock)))
}

// RecordAdmin appends an admin audit record
func (e *Emitter) RecordAdmin(ctx context.Context, record *models.AuditRecord) error {
	if err := e.recorder.Append(ctx, models.CollectionAdminAudit, e.newKey(), record, record.PerformedBy); err != nil {
		e.logger.Error("failed to record admin audit",
			zap.String("action", string(record.Action)),
			zap.String("performed_by", record.PerformedBy),
			zap.String("target", record.TargetUserID),
			zap.Error(err))
		return fmt.Errorf("record %s audit: %w", record.Action, err)
	}
	return nil
}

// WaqfAction derives the audit action for a waqf write. changed lists the
// top-level fields that differ from the previous version.
func WaqfAction(next, previous *models.Waqf, changed []string) models.WaqfAuditAction {
	if previous == nil {
		return models.WaqfAuditCreate
	}
	if next.Status != previous.Status {
		switch next.Status {
		case models.WaqfStatusPaused:
			return models.WaqfAuditPause
		case models.WaqfStatusCompleted:
			return models.WaqfAuditComplete
		case models.WaqfStatusActive:
			// resuming is an ordinary update
		}
	}
	for _, field := range changed {
		if field == "causeAllocation" {
			return models.WaqfAuditAllocationChange
		}
	}
	return models.WaqfAuditUpdate
}

// WaqfChanged records the audit trail of a committed waqf write
func (e *Emitter) WaqfChanged(ctx context.Context, caller, key string, next, previous *models.Waqf, changed []string) error {
	action := WaqfAction(next, previous, changed)
	record := models.NewWaqfAudit(key, action, caller, shared.NowMillis(e.clock))
	if previous != nil && previous.Status != next.Status {
		record.WithNotes(fmt.Sprintf("status %s -> %s", previous.Status, next.Status))
	}
	return e.RecordWaqf(ctx, record)
}

// RecordWaqf appends a waqf audit record
func (e *Emitter) RecordWaqf(ctx context.Context, record *models.WaqfAudit) error {
	if err := e.recorder.Append(ctx, models.CollectionWaqfAudit, e.newKey(), record, record.PerformedBy); err != nil {
		e.logger.Error("failed to record waqf audit",
			zap.String("action", string(record.Action)),
			zap.String("waqf_id", record.WaqfID),
			zap.Error(err))
		return fmt.Errorf("record waqf %s audit: %w", record.Action, err)
	}
	return nil
}

// CriticalMessage formats the alert raised for a flagged action
func CriticalMessage(action, performer, target string) string {
	return fmt.Sprintf("CRITICAL: %s performed by %s on %s", action, performer, target)
}

// AlertAdmin raises a critical alert when the record's action is flagged
func (e *Emitter) AlertAdmin(ctx context.Context, record *models.AuditRecord) error {
	if !record.Action.IsCritical() {
		return nil
	}
	return e.alert(ctx, CriticalMessage(string(record.Action), record.PerformedBy, record.TargetUserID))
}

// AlertWaqf raises a critical alert when the record's action is flagged
func (e *Emitter) AlertWaqf(ctx context.Context, record *models.WaqfAudit) error {
	if !record.Action.IsCritical() {
		return nil
	}
	return e.alert(ctx, CriticalMessage(string(record.Action), record.PerformedBy, record.WaqfID))
}

func (e *Emitter) alert(ctx context.Context, message string) error {
	if err := e.notifier.Notify(ctx, notify.SeverityCritical, message); err != nil {
		e.logger.Error("failed to raise critical alert", zap.String("alert", message), zap.Error(err))
		return fmt.Errorf("raise alert: %w", err)
	}
	return nil
}
