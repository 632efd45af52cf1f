package models

import (
	"time"

	"gorm.io/gorm"
)

// Role grants access to the admin surface
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is a profile linked to a Firebase identity
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirebaseUID *string `gorm:"type:varchar(128);uniqueIndex" json:"firebase_uid"`
	Email       string  `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	FullName    string  `gorm:"type:varchar(255)" json:"full_name"`
	Phone       string  `gorm:"type:varchar(50)" json:"phone"`
	Role        Role    `gorm:"type:varchar(20);default:'user'" json:"role"`
}

// HasRole reports whether the user holds one of roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
