package domain

import "time"

// Role enumerates account roles.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleTechnician  Role = "TECNICO"
	RoleCoordinator Role = "COORDINADOR"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleCoordinator:
		return true
	default:
		return false
	}
}

// User is an account able to act on case files.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary returns the public projection of the user.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

// UserSummary is the identity embedded in case files and evidence items.
type UserSummary struct {
	ID       int64
	Username string
	Email    string
	FullName string
	Role     Role
}

// Actor is the already-authenticated caller of a service operation.
type Actor struct {
	ID   int64
	Role Role
}
