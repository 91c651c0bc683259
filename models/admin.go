package models

// AdminRole represents the tier of an administrator account
type AdminRole string

const (
	RoleViewer     AdminRole = "viewer"
	RoleEditor     AdminRole = "editor"
	RoleManager    AdminRole = "manager"
	RoleSuperAdmin AdminRole = "super_admin"
)

// AllAdminRoles lists every role, lowest tier first
var AllAdminRoles = []AdminRole{RoleViewer, RoleEditor, RoleManager, RoleSuperAdmin}

// IsValid reports whether r is a known role
func (r AdminRole) IsValid() bool {
	switch r {
	case RoleViewer, RoleEditor, RoleManager, RoleSuperAdmin:
		return true
	}
	return false
}

// IsPrivileged reports whether the role is subject to headcount quotas
func (r AdminRole) IsPrivileged() bool {
	switch r {
	case RoleEditor, RoleManager, RoleSuperAdmin:
		return true
	case RoleViewer:
		return false
	}
	return false
}

// Permission is a capability an admin may hold
type Permission string

const (
	PermissionContent  Permission = "content"
	PermissionUsers    Permission = "users"
	PermissionSettings Permission = "settings"
	PermissionSuper    Permission = "super"
)

// AllPermissions is the full permission set
var AllPermissions = []Permission{PermissionContent, PermissionUsers, PermissionSettings, PermissionSuper}

// AdminUser is an identity-bearing administrator account, keyed by the
// admin's caller identity.
type AdminUser struct {
	Email       string       `json:"email" validate:"required,email,max=254"`
	Name        string       `json:"name,omitempty" validate:"max=200"`
	Role        AdminRole    `json:"role" validate:"required"`
	Permissions []Permission `json:"permissions"`
	CreatedBy   string       `json:"createdBy" validate:"required"`
	Active      bool         `json:"active"`
	CreatedAt   int64        `json:"createdAt,omitempty"`
	UpdatedAt   int64        `json:"updatedAt,omitempty"`
}

// NewAdminUser creates a new AdminUser instance
func NewAdminUser(email string, role AdminRole, permissions []Permission, createdBy string) *AdminUser {
	return &AdminUser{
		Email:       email,
		Role:        role,
		Permissions: permissions,
		CreatedBy:   createdBy,
		Active:      true,
	}
}

// HasPermission reports whether the admin holds p
func (a *AdminUser) HasPermission(p Permission) bool {
	for _, held := range a.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// IsSuperAdmin returns true if the admin has the super admin role
func (a *AdminUser) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// SamePermissions reports whether both admins hold the same permission set
func (a *AdminUser) SamePermissions(other *AdminUser) bool {
	seen := make(map[Permission]bool, len(a.Permissions))
	for _, p := range a.Permissions {
		seen[p] = true
	}
	otherSeen := make(map[Permission]bool, len(other.Permissions))
	for _, p := range other.Permissions {
		if !seen[p] {
			return false
		}
		otherSeen[p] = true
	}
	return len(seen) == len(otherSeen)
}

// ApprovalRecord registers one vote toward activating or deactivating an admin.
type ApprovalRecord struct {
	TargetAdmin string `json:"targetAdmin" validate:"required"`
	ApprovedBy  string `json:"approvedBy" validate:"required"`
	Timestamp   int64  `json:"timestamp" validate:"gt=0"`
	Note        string `json:"note,omitempty" validate:"max=1000"`
}
