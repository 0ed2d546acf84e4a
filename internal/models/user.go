package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User is a registered student account.
// The administrator is a configured account and never has a row here.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	StudentID    *string   `gorm:"size:64" json:"student_id"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:16;not null;default:student" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeCreate is a GORM hook that normalizes the email and fills the default role.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return
}
