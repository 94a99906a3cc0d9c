package models

import (
	"time"

	"gorm.io/gorm"
)

type RoomToken struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RoomID    string    `gorm:"column:room_id;type:uuid;index" json:"roomId"`
	UserID    string    `gorm:"column:user_id;type:uuid;index" json:"userId"`
	Token     string    `gorm:"column:token;type:text;not null" json:"token"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamptz" json:"expiresAt"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (RoomToken) TableName() string { return "room_tokens" }
