package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DataChannel is the pub/sub channel carrying a room's data packets.
func DataChannel(room string) string { return "room:" + room + ":data" }

const (
	roomKeyPrefix = "relay:room:"
	roomSetKey    = "relay:rooms"
)

// Redis is a self-hosted transport: rooms are Redis records and data packets are
// published on a per-room channel that websocket clients subscribe to.
type Redis struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedis(rdb redis.UniversalClient) *Redis {
	return &Redis{rdb: rdb, now: time.Now}
}

func (r *Redis) SendData(ctx context.Context, room string, payload []byte, _ DataKind) error {
	return r.rdb.Publish(ctx, DataChannel(room), payload).Err()
}

// Subscribe opens a subscription on the room's data channel. The caller closes it.
func (r *Redis) Subscribe(ctx context.Context, room string) *redis.PubSub {
	return r.rdb.Subscribe(ctx, DataChannel(room))
}

func (r *Redis) CreateRoom(ctx context.Context, name string, opts RoomOptions) (*Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("room name is required")
	}

	key := roomKeyPrefix + name
	// Creating an existing room returns it unchanged.
	var existing Room
	if b, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
		if err := json.Unmarshal(b, &existing); err == nil {
			return &existing, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	room := Room{
		SID:             "RM_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Name:            name,
		EmptyTimeout:    opts.EmptyTimeout,
		MaxParticipants: opts.MaxParticipants,
		CreationTime:    r.now().Unix(),
		Metadata:        opts.Metadata,
	}
	b, err := json.Marshal(room)
	if err != nil {
		return nil, err
	}

	ok, err := r.rdb.SetNX(ctx, key, b, 0).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		// lost a creation race; return the winner
		return r.get(ctx, name)
	}
	if err := r.rdb.SAdd(ctx, roomSetKey, name).Err(); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *Redis) get(ctx context.Context, name string) (*Room, error) {
	b, err := r.rdb.Get(ctx, roomKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var room Room
	if err := json.Unmarshal(b, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", name, err)
	}
	return &room, nil
}

func (r *Redis) ListRooms(ctx context.Context, names ...string) ([]Room, error) {
	if len(names) == 0 {
		all, err := r.rdb.SMembers(ctx, roomSetKey).Result()
		if err != nil {
			return nil, err
		}
		names = all
	}
	if len(names) == 0 {
		return []Room{}, nil
	}

	keys := make([]string, len(names))
	channels := make([]string, len(names))
	for i, n := range names {
		keys[i] = roomKeyPrefix + n
		channels[i] = DataChannel(n)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	// Subscribers on the data channel approximate connected participants.
	subs, err := r.rdb.PubSubNumSub(ctx, channels...).Result()
	if err != nil {
		subs = map[string]int64{}
	}

	out := make([]Room, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var room Room
		if err := json.Unmarshal([]byte(s), &room); err != nil {
			continue
		}
		room.NumParticipants = int(subs[channels[i]])
		out = append(out, room)
	}
	return out, nil
}

func (r *Redis) DeleteRoom(ctx context.Context, name string) error {
	n, err := r.rdb.Del(ctx, roomKeyPrefix+name).Result()
	if err != nil {
		return err
	}
	if err := r.rdb.SRem(ctx, roomSetKey, name).Err(); err != nil {
		return err
	}
	if n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
