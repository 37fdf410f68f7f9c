package model

import "time"

// Role determines a user's default visibility and permission scope.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleHOD        Role = "hod"
	RoleSupervisor Role = "supervisor"
	RoleUser       Role = "user"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleHOD, RoleSupervisor, RoleUser}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHOD, RoleSupervisor, RoleUser:
		return true
	}
	return false
}

// User is both a stored account and the authenticated principal
// attached to a request. IsStaff is treated as admin-equivalent.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	Department   string    `json:"department,omitempty" db:"department"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsAdmin reports whether the user has admin-level rights.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin || u.IsStaff
}
