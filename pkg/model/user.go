package model

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

// UserIdentity is the resolved identity behind an authenticated connection.
// It is sourced from the persistence store and never mutated by the core.
type UserIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
