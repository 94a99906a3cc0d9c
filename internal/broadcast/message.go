package broadcast

import "time"

type Type string

const (
	TypeTranscription Type = "transcription"
	TypeTTS           Type = "tts"
)

// Message is the JSON packet delivered on a room's data channel.
type Message struct {
	Type         Type     `json:"type"`
	Text         string   `json:"text,omitempty"`
	AudioContent string   `json:"audioContent,omitempty"`
	Language     string   `json:"language,omitempty"`
	UserID       string   `json:"userId"`
	RoomID       string   `json:"roomId"`
	Timestamp    int64    `json:"timestamp"` // unix millis
	Confidence   *float64 `json:"confidence,omitempty"`
}

// NewCaption carries a transcript in the speaker's language.
func NewCaption(now time.Time, roomID, userID, text, language string, confidence float64) Message {
	return Message{
		Type:       TypeTranscription,
		Text:       text,
		Language:   language,
		UserID:     userID,
		RoomID:     roomID,
		Timestamp:  now.UnixMilli(),
		Confidence: &confidence,
	}
}

// NewSpeech carries base64 synthesized audio in language.
func NewSpeech(now time.Time, roomID, userID, audioBase64, language string) Message {
	return Message{
		Type:         TypeTTS,
		AudioContent: audioBase64,
		Language:     language,
		UserID:       userID,
		RoomID:       roomID,
		Timestamp:    now.UnixMilli(),
	}
}
