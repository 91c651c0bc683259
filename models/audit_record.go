package models

// AuditAction represents the type of admin action being audited
type AuditAction string

const (
	AuditActionCreateAdmin      AuditAction = "create_admin"
	AuditActionUpdateAdmin      AuditAction = "update_admin"
	AuditActionDeleteAdmin      AuditAction = "delete_admin"
	AuditActionPermissionChange AuditAction = "permission_change"
	AuditActionRoleChange       AuditAction = "role_change"
	AuditActionActivateAdmin    AuditAction = "activate_admin"
	AuditActionDeactivateAdmin  AuditAction = "deactivate_admin"
)

// IsValid reports whether a is a known audit action
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionCreateAdmin, AuditActionUpdateAdmin, AuditActionDeleteAdmin,
		AuditActionPermissionChange, AuditActionRoleChange,
		AuditActionActivateAdmin, AuditActionDeactivateAdmin:
		return true
	}
	return false
}

// IsCritical reports whether the action raises a critical alert
func (a AuditAction) IsCritical() bool {
	switch a {
	case AuditActionRoleChange, AuditActionPermissionChange,
		AuditActionActivateAdmin, AuditActionDeactivateAdmin, AuditActionDeleteAdmin:
		return true
	case AuditActionCreateAdmin, AuditActionUpdateAdmin:
		return false
	}
	return false
}

// AuditRecord is an append-only trail entry for admin actions
type AuditRecord struct {
	Action       AuditAction `json:"action" validate:"required"`
	PerformedBy  string      `json:"performedBy" validate:"required"`
	TargetUserID string      `json:"targetUserId" validate:"required"`
	Timestamp    int64       `json:"timestamp" validate:"gt=0"`
	Details      string      `json:"details,omitempty" validate:"max=2000"`
}

// NewAuditRecord creates a new AuditRecord instance
func NewAuditRecord(action AuditAction, performedBy, target string, timestamp int64) *AuditRecord {
	return &AuditRecord{
		Action:       action,
		PerformedBy:  performedBy,
		TargetUserID: target,
		Timestamp:    timestamp,
	}
}

// WithDetails sets the free-text note
func (a *AuditRecord) WithDetails(details string) *AuditRecord {
	a.Details = details
	return a
}

// WaqfAuditAction represents the type of waqf action being audited
type WaqfAuditAction string

const (
	WaqfAuditCreate           WaqfAuditAction = "create"
	WaqfAuditUpdate           WaqfAuditAction = "update"
	WaqfAuditPause            WaqfAuditAction = "pause"
	WaqfAuditComplete         WaqfAuditAction = "complete"
	WaqfAuditAllocationChange WaqfAuditAction = "allocation_change"
)

// IsValid reports whether a is a known waqf audit action
func (a WaqfAuditAction) IsValid() bool {
	switch a {
	case WaqfAuditCreate, WaqfAuditUpdate, WaqfAuditPause, WaqfAuditComplete, WaqfAuditAllocationChange:
		return true
	}
	return false
}

// IsCritical reports whether the action raises a critical alert
func (a WaqfAuditAction) IsCritical() bool {
	switch a {
	case WaqfAuditPause, WaqfAuditComplete:
		return true
	case WaqfAuditCreate, WaqfAuditUpdate, WaqfAuditAllocationChange:
		return false
	}
	return false
}

// WaqfAudit is an append-only trail entry for waqf changes
type WaqfAudit struct {
	WaqfID      string          `json:"waqfId" validate:"required"`
	Action      WaqfAuditAction `json:"action" validate:"required"`
	PerformedBy string          `json:"performedBy" validate:"required"`
	Timestamp   int64           `json:"timestamp" validate:"gt=0"`
	Notes       string          `json:"notes,omitempty" validate:"max=2000"`
}

// NewWaqfAudit creates a new WaqfAudit instance
func NewWaqfAudit(waqfID string, action WaqfAuditAction, performedBy string, timestamp int64) *WaqfAudit {
	return &WaqfAudit{
		WaqfID:      waqfID,
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   timestamp,
	}
}

// WithNotes sets the free-text note
func (w *WaqfAudit) WithNotes(notes string) *WaqfAudit {
	w.Notes = notes
	return w
}
