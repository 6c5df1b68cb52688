package models

import (
	"strings"
	"time"
)

// Role is the permission level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
)

// AdminUsername is the only username allowed to hold RoleAdmin.
const AdminUsername = "admin"

// User represents a registered account.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username    string    `json:"username" gorm:"type:varchar(100);not null"`
	UsernameKey string    `json:"-" gorm:"uniqueIndex;type:varchar(100);not null"` // lower-cased username
	Password    string    `json:"-" gorm:"type:varchar(255);not null"`             // bcrypt hash
	Role        Role      `json:"role" gorm:"type:varchar(16);not null;default:user"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// UsernameKey normalizes a username for case-insensitive comparison.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ResolveRole applies the admin rule: the admin username is always an admin,
// nobody else can become one by asking.
func ResolveRole(username string, requested Role) Role {
	if UsernameKey(username) == AdminUsername {
		return RoleAdmin
	}
	switch requested {
	case RoleProvider:
		return RoleProvider
	default:
		return RoleUser
	}
}
