package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	gorm.Model
	ProfileImage string     `gorm:"default:''" json:"profile_image"`
	Name         string     `gorm:"default:''" json:"name"`
	Email        string     `gorm:"unique;not null" json:"email"`
	Mobile       string     `gorm:"default:''" json:"mobile"`
	Role         string     `gorm:"default:'USER'" json:"role"` // USER, ADMIN
	Password     string     `json:"-"`
	LastLogin    *time.Time `json:"last_login"`
	IsBlocked    bool       `gorm:"default:false" json:"is_blocked"`
	IsDeleted    bool       `gorm:"default:false" json:"-"`

	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	BlockedUntil        *time.Time `json:"-"`
}
