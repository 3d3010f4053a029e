package models

import "time"

// Role is the administrative role a grant confers.
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleSubAdmin   Role = "sub-admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleSubAdmin
}

// ScopeKind is the granularity at which a grant applies. Folder is the
// generic subtree scope; level/semester/subject exist so the admin UI can
// label grants, the evaluator treats all item-rooted kinds identically.
type ScopeKind string

const (
	ScopeGlobal   ScopeKind = "global"
	ScopeLevel    ScopeKind = "level"
	ScopeSemester ScopeKind = "semester"
	ScopeSubject  ScopeKind = "subject"
	ScopeFolder   ScopeKind = "folder"
)

// Valid reports whether k is a known scope kind.
func (k ScopeKind) Valid() bool {
	switch k {
	case ScopeGlobal, ScopeLevel, ScopeSemester, ScopeSubject, ScopeFolder:
		return true
	default:
		return false
	}
}

// RoleGrant is an authorization fact attached to a user. Grants are created
// by the admin flow and read, never mutated, by the permission evaluator.
type RoleGrant struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Role        Role      `json:"role" db:"role"`
	ScopeKind   ScopeKind `json:"scope_kind" db:"scope_kind"`
	ScopeID     *string   `json:"scope_id" db:"scope_id"` // nil when ScopeKind is global
	Permissions []string  `json:"permissions" db:"permissions"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HasPermission reports whether the grant carries the named capability.
func (g *RoleGrant) HasPermission(capability string) bool {
	for _, p := range g.Permissions {
		if p == capability {
			return true
		}
	}
	return false
}

// User is the evaluator's view of an authenticated caller: identity plus the
// grants loaded for it.
type User struct {
	ID     string      `json:"id"`
	Grants []RoleGrant `json:"grants"`
}

// IsSuperAdmin reports whether any grant confers the unconditional role.
func (u *User) IsSuperAdmin() bool {
	for i := range u.Grants {
		if u.Grants[i].Role == RoleSuperAdmin {
			return true
		}
	}
	return false
}
