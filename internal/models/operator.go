package models

import "time"

// Role is what an operator may see through the device API.
type Role string

const (
	// RoleAdmin may also list the saved network slots.
	RoleAdmin Role = "admin"
	// RoleViewer may read state and the event log.
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// Allows reports whether r satisfies a route that requires need.
func (r Role) Allows(need Role) bool {
	switch need {
	case RoleViewer:
		return r.Valid()
	case RoleAdmin:
		return r == RoleAdmin
	default:
		return false
	}
}

// Operator is an account on the device API. The first operator to sign
// up owns the device and is the only admin.
type Operator struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
