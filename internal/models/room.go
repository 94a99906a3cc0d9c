package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Room struct {
	ID               string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SID              string `gorm:"column:sid;type:text;uniqueIndex;not null" json:"sid"`
	Name             string `gorm:"column:name;type:text;index;not null" json:"name"`
	EmptyTimeout     int    `gorm:"column:empty_timeout" json:"emptyTimeout"`
	DepartureTimeout int    `gorm:"column:departure_timeout" json:"departureTimeout"`
	MaxParticipants  int    `gorm:"column:max_participants" json:"maxParticipants"`
	CreationTime     int64  `gorm:"column:creation_time" json:"creationTime"`
	Metadata         string `gorm:"column:metadata;type:text" json:"metadata"`
	NumParticipants  int    `gorm:"column:num_participants" json:"numParticipants"`
	NumPublishers    int    `gorm:"column:num_publishers" json:"numPublishers"`
	ActiveRecording  bool   `gorm:"column:active_recording" json:"activeRecording"`

	// mime types of the codecs the room was created with
	Codecs pq.StringArray `gorm:"column:codecs;type:text[]" json:"codecs"`
	// raw transport snapshot at creation time
	Details datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`

	UserID string `gorm:"column:user_id;type:uuid;index" json:"userId"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamptz" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamptz" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Room) TableName() string { return "rooms" }
