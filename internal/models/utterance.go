package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UtteranceSource string

const (
	SourceComplete UtteranceSource = "complete" // fully reassembled fragments
	SourcePreview  UtteranceSource = "preview"  // single large fragment
	SourceStream   UtteranceSource = "stream"   // websocket PCM window
)

// UtteranceRecord is one processed utterance in a room's transcript history.
type UtteranceRecord struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID string             `bson:"room_id" json:"roomId"`
	UserID string             `bson:"user_id" json:"userId"`

	Source     UtteranceSource `bson:"source" json:"source"`
	Transcript string          `bson:"transcript" json:"transcript"`
	Text       string          `bson:"text" json:"text"` // after translation
	Language   string          `bson:"language" json:"language"`
	Confidence float64         `bson:"confidence,omitempty" json:"confidence,omitempty"`
	Demo       bool            `bson:"demo,omitempty" json:"demo,omitempty"`
	HasAudio   bool            `bson:"has_audio" json:"hasAudio"`

	AudioBytes       int   `bson:"audio_bytes" json:"audioBytes"`
	ProcessingTimeMS int64 `bson:"processing_time_ms" json:"processingTimeMs"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"` // TTL index
}
