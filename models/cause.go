package models

import "strings"

// CauseStatus represents where a cause sits in its approval workflow
type CauseStatus string

const (
	CauseStatusDraft     CauseStatus = "draft"
	CauseStatusPending   CauseStatus = "pending"
	CauseStatusApproved  CauseStatus = "approved"
	CauseStatusRejected  CauseStatus = "rejected"
	CauseStatusPaused    CauseStatus = "paused"
	CauseStatusCompleted CauseStatus = "completed"
)

// IsValid reports whether s is a known cause status
func (s CauseStatus) IsValid() bool {
	switch s {
	case CauseStatusDraft, CauseStatusPending, CauseStatusApproved,
		CauseStatusRejected, CauseStatusPaused, CauseStatusCompleted:
		return true
	}
	return false
}

// CausePriority is an optional urgency marker
type CausePriority string

const (
	CausePriorityLow    CausePriority = "low"
	CausePriorityNormal CausePriority = "normal"
	CausePriorityHigh   CausePriority = "high"
	CausePriorityUrgent CausePriority = "urgent"
)

// IsValid reports whether p is a known priority
func (p CausePriority) IsValid() bool {
	switch p {
	case CausePriorityLow, CausePriorityNormal, CausePriorityHigh, CausePriorityUrgent:
		return true
	}
	return false
}

// CauseCategories is the fixed list of categories, compared case-insensitively
var CauseCategories = []string{
	"education",
	"healthcare",
	"poverty_alleviation",
	"disaster_relief",
	"environmental",
	"community_development",
	"orphan_care",
	"elder_care",
	"humanitarian_aid",
	"religious_services",
	"other",
}

// IsCauseCategory reports whether category is in the fixed list
func IsCauseCategory(category string) bool {
	for _, c := range CauseCategories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// Cause is a charitable campaign with a fundraising goal
type Cause struct {
	ID           string         `json:"id" validate:"required"`
	Title        string         `json:"title" validate:"required,max=200"`
	Description  string         `json:"description" validate:"required,max=5000"`
	Category     string         `json:"category" validate:"required"`
	GoalAmount   float64        `json:"goalAmount" validate:"gt=0,lte=10000000"`
	RaisedAmount *float64       `json:"raisedAmount,omitempty"`
	ImageURL     string         `json:"imageUrl,omitempty" validate:"omitempty,max=2048,url"`
	Status       CauseStatus    `json:"status" validate:"required"`
	IsActive     bool           `json:"isActive"`
	Priority     *CausePriority `json:"priority,omitempty"`
	CreatedBy    string         `json:"createdBy" validate:"required"`
	CreatedAt    int64          `json:"createdAt,omitempty"`
	UpdatedAt    int64          `json:"updatedAt,omitempty"`
	UpdatedBy    string         `json:"updatedBy,omitempty"`
	ApprovedBy   *string        `json:"approvedBy,omitempty"`
	ApprovedAt   *int64         `json:"approvedAt,omitempty"`
	Deleted      bool           `json:"deleted,omitempty"`
	DeletedAt    *int64         `json:"deletedAt,omitempty"`
	DeletedBy    *string        `json:"deletedBy,omitempty"`
}

// Raised returns the raised amount, treating an absent value as zero
func (c *Cause) Raised() float64 {
	if c.RaisedAmount == nil {
		return 0
	}
	return *c.RaisedAmount
}

// HasApprover reports whether approver metadata is present
func (c *Cause) HasApprover() bool {
	return c.ApprovedBy != nil && strings.TrimSpace(*c.ApprovedBy) != "" && c.ApprovedAt != nil
}
