package models

import "time"

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

// NormalizeStatus maps any input onto a known status. Only "inactive" is
// treated as inactive; everything else, including the empty string, is active.
func NormalizeStatus(s string) UserStatus {
	if UserStatus(s) == StatusInactive {
		return StatusInactive
	}
	return StatusActive
}

// User represents a managed user record.
type User struct {
	ID        uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	Firstname string     `json:"firstname" gorm:"type:varchar(100);not null"`
	Lastname  string     `json:"lastname" gorm:"type:varchar(100);not null"`
	Email     string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Phone     string     `json:"phone" gorm:"type:varchar(50);not null"`
	Password  string     `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	Status    UserStatus `json:"status" gorm:"type:varchar(16);not null;default:active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
