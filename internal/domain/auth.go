package domain

// Role partitions callers into administrators and regular users.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Caller is the resolved identity of an authenticated request.
type Caller struct {
	Subject string
	Role    Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
