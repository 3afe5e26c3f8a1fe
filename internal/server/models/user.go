package models

import "time"

// User is an account. Email is the login identifier.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	IsActive     bool
	IsStaff      bool
	IsAdmin      bool
	CreatedAt    time.Time
}

// IsPrivileged reports whether the user may use administrator-only endpoints.
func (u *User) IsPrivileged() bool {
	return u != nil && u.IsActive && (u.IsStaff || u.IsAdmin)
}
