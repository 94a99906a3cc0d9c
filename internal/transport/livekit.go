package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/livekit/protocol/livekit"
	"github.com/twitchtv/twirp"
)

// LiveKit administers rooms and pushes data packets through the media
// server's RoomService.
type LiveKit struct {
	rooms  livekit.RoomService
	signer *TokenSigner
}

// NewLiveKit accepts the server URL in any of its usual forms (wss://, https://).
func NewLiveKit(host string, signer *TokenSigner, timeout time.Duration) *LiveKit {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LiveKit{
		rooms:  livekit.NewRoomServiceJSONClient(httpBase(host), &http.Client{Timeout: timeout}),
		signer: signer,
	}
}

func httpBase(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	switch {
	case strings.HasPrefix(host, "wss://"):
		return "https://" + strings.TrimPrefix(host, "wss://")
	case strings.HasPrefix(host, "ws://"):
		return "http://" + strings.TrimPrefix(host, "ws://")
	case strings.HasPrefix(host, "http://"), strings.HasPrefix(host, "https://"):
		return host
	default:
		return "https://" + host
	}
}

// authorize attaches a short-lived admin token for room to ctx.
func (l *LiveKit) authorize(ctx context.Context, method, room string) (context.Context, error) {
	token, err := l.signer.ServiceToken(room)
	if err != nil {
		return nil, fmt.Errorf("livekit %s: sign: %w", method, err)
	}
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return twirp.WithHTTPRequestHeaders(ctx, h)
}

func wrap(method string, err error) error {
	var te twirp.Error
	if errors.As(err, &te) && te.Code() == twirp.NotFound {
		return fmt.Errorf("livekit %s: %w", method, ErrRoomNotFound)
	}
	return fmt.Errorf("livekit %s: %w", method, err)
}

func (l *LiveKit) SendData(ctx context.Context, room string, payload []byte, kind DataKind) error {
	ctx, err := l.authorize(ctx, "SendData", room)
	if err != nil {
		return err
	}
	pk := livekit.DataPacket_RELIABLE
	if kind == Lossy {
		pk = livekit.DataPacket_LOSSY
	}
	if _, err := l.rooms.SendData(ctx, &livekit.SendDataRequest{Room: room, Data: payload, Kind: pk}); err != nil {
		return wrap("SendData", err)
	}
	return nil
}

func (l *LiveKit) CreateRoom(ctx context.Context, name string, opts RoomOptions) (*Room, error) {
	ctx, err := l.authorize(ctx, "CreateRoom", name)
	if err != nil {
		return nil, err
	}
	r, err := l.rooms.CreateRoom(ctx, &livekit.CreateRoomRequest{
		Name:            name,
		EmptyTimeout:    uint32(opts.EmptyTimeout),
		MaxParticipants: uint32(opts.MaxParticipants),
		Metadata:        opts.Metadata,
	})
	if err != nil {
		return nil, wrap("CreateRoom", err)
	}
	room := fromLiveKit(r)
	return &room, nil
}

func (l *LiveKit) ListRooms(ctx context.Context, names ...string) ([]Room, error) {
	ctx, err := l.authorize(ctx, "ListRooms", "")
	if err != nil {
		return nil, err
	}
	resp, err := l.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{Names: names})
	if err != nil {
		return nil, wrap("ListRooms", err)
	}
	out := make([]Room, 0, len(resp.GetRooms()))
	for _, r := range resp.GetRooms() {
		out = append(out, fromLiveKit(r))
	}
	return out, nil
}

func (l *LiveKit) DeleteRoom(ctx context.Context, name string) error {
	ctx, err := l.authorize(ctx, "DeleteRoom", name)
	if err != nil {
		return err
	}
	if _, err := l.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: name}); err != nil {
		return wrap("DeleteRoom", err)
	}
	return nil
}

func fromLiveKit(r *livekit.Room) Room {
	out := Room{
		SID:              r.GetSid(),
		Name:             r.GetName(),
		EmptyTimeout:     int(r.GetEmptyTimeout()),
		DepartureTimeout: int(r.GetDepartureTimeout()),
		MaxParticipants:  int(r.GetMaxParticipants()),
		CreationTime:     r.GetCreationTime(),
		TurnPassword:     r.GetTurnPassword(),
		Metadata:         r.GetMetadata(),
		NumParticipants:  int(r.GetNumParticipants()),
		NumPublishers:    int(r.GetNumPublishers()),
		ActiveRecording:  r.GetActiveRecording(),
	}
	for _, c := range r.GetEnabledCodecs() {
		out.EnabledCodecs = append(out.EnabledCodecs, Codec{Mime: c.GetMime(), FmtpLine: c.GetFmtpLine()})
	}
	return out
}
