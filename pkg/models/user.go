package models

import (
	"github.com/google/uuid"
)

// UserType distinguishes administrators from general users.
type UserType string

const (
	UserTypeAdmin   UserType = "ADMIN_USER"
	UserTypeGeneral UserType = "GENERAL_USER"
)

// User carries the fields needed for authorization decisions.
type User struct {
	ID       uuid.UUID `json:"id"`
	UserName string    `json:"user_name"`
	UserType UserType  `json:"user_type"`
}

// IsAdmin reports whether the user is an administrator.
func (u *User) IsAdmin() bool {
	return u != nil && u.UserType == UserTypeAdmin
}
