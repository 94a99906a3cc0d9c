// Package transport is the relay's view of the real-time media service: it
// creates and lists rooms and pushes data packets to every participant.
package transport

import (
	"context"
	"errors"
)

type DataKind int

const (
	Reliable DataKind = iota
	Lossy
)

func (k DataKind) String() string {
	if k == Lossy {
		return "LOSSY"
	}
	return "RELIABLE"
}

var ErrRoomNotFound = errors.New("room not found")

type Codec struct {
	Mime     string `json:"mime"`
	FmtpLine string `json:"fmtpLine,omitempty"`
}

type Room struct {
	SID              string  `json:"sid"`
	Name             string  `json:"name"`
	EmptyTimeout     int     `json:"emptyTimeout"`
	DepartureTimeout int     `json:"departureTimeout"`
	MaxParticipants  int     `json:"maxParticipants"`
	CreationTime     int64   `json:"creationTime"`
	TurnPassword     string  `json:"turnPassword,omitempty"`
	EnabledCodecs    []Codec `json:"enabledCodecs,omitempty"`
	Metadata         string  `json:"metadata"`
	NumParticipants  int     `json:"numParticipants"`
	NumPublishers    int     `json:"numPublishers"`
	ActiveRecording  bool    `json:"activeRecording"`
}

type RoomOptions struct {
	EmptyTimeout    int // seconds
	MaxParticipants int
	Metadata        string
}

// DefaultRoomOptions: rooms close after 30 idle minutes and hold 20 people.
func DefaultRoomOptions() RoomOptions {
	return RoomOptions{EmptyTimeout: 30 * 60, MaxParticipants: 20}
}

type Transport interface {
	SendData(ctx context.Context, room string, payload []byte, kind DataKind) error
	CreateRoom(ctx context.Context, name string, opts RoomOptions) (*Room, error)
	// ListRooms returns all rooms, or only the named ones when names is non-empty.
	ListRooms(ctx context.Context, names ...string) ([]Room, error)
	DeleteRoom(ctx context.Context, name string) error
}
