package auth

import "time"

// User represents an authenticated user account. Roles carry the ACL role
// idents resolved at load time; they are parsed once, never re-split per
// check.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Roles        []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleIdents satisfies authz.Actor.
func (u *User) RoleIdents() []string {
	if u == nil {
		return nil
	}
	return u.Roles
}
