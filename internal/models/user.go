package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

type User struct {
	ID           string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;type:text;not null" json:"name"`
	Email        string     `gorm:"column:email;type:text;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:text;not null" json:"-"`
	PhoneNo      string     `gorm:"column:phone_no;type:text" json:"phoneNo"`
	Language     string     `gorm:"column:language;type:text" json:"language"`
	ProfileImage string     `gorm:"column:profile_image;type:text" json:"profileImage,omitempty"`
	Status       UserStatus `gorm:"column:status;type:text;default:offline" json:"status"`
	Role         UserRole   `gorm:"column:role;type:text;default:user" json:"role"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamptz" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (User) TableName() string { return "users" }
