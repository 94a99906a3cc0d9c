package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/models"
	pgrepo "github.com/yoockh/speechrelay/internal/repositories/postgres"
	"github.com/yoockh/speechrelay/internal/transport"
	"github.com/yoockh/speechrelay/internal/utils"
	"gorm.io/datatypes"
)

// JoinTokenSigner mints participant access tokens for the media service.
type JoinTokenSigner interface {
	JoinToken(identity, name, room string, ttl time.Duration) (string, time.Time, error)
}

// RoomUser is the authenticated caller acting on rooms.
type RoomUser struct {
	ID   string
	Name string
}

type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CreatedRoom struct {
	Room  *models.Room
	Token *IssuedToken // set when the caller asked to join right away
}

type RoomService interface {
	Create(ctx context.Context, user RoomUser, roomName string, join bool) (*CreatedRoom, error)
	List(ctx context.Context, limit int) ([]models.Room, error)
	Delete(ctx context.Context, userID, roomName string) error
	CreateToken(ctx context.Context, user RoomUser, roomName string) (*IssuedToken, error)
	IsCreator(ctx context.Context, userID, roomSID string) (bool, error)
	Details(ctx context.Context, roomSID string) (*models.Room, error)
}

type roomService struct {
	rooms  pgrepo.RoomRepository
	tokens pgrepo.RoomTokenRepository
	users  pgrepo.UserRepository
	media  transport.Transport
	signer JoinTokenSigner
	log    *logrus.Logger

	tokenTTL time.Duration
}

func NewRoomService(rooms pgrepo.RoomRepository, tokens pgrepo.RoomTokenRepository, users pgrepo.UserRepository, media transport.Transport, signer JoinTokenSigner, log *logrus.Logger) RoomService {
	if log == nil {
		log = logrus.New()
	}
	return &roomService{
		rooms:    rooms,
		tokens:   tokens,
		users:    users,
		media:    media,
		signer:   signer,
		log:      log,
		tokenTTL: 10 * time.Minute,
	}
}

func (s *roomService) Create(ctx context.Context, user RoomUser, roomName string, join bool) (*CreatedRoom, error) {
	const op = "RoomService.Create"

	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "roomName is required", nil)
	}
	if user.ID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "missing user", nil)
	}
	if _, err := s.users.GetByID(ctx, user.ID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeInvalidArgument, op, "user does not exist, cannot create room", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}

	opts := transport.DefaultRoomOptions()
	opts.Metadata = user.ID
	live, err := s.media.CreateRoom(ctx, roomName, opts)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "media service rejected room", err)
	}

	room := toModel(live)
	room.ID = uuid.NewString()
	room.UserID = user.ID
	if err := s.rooms.Upsert(ctx, room); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to save room", err)
	}
	// Upsert keeps the existing id when the sid was already known.
	if stored, err := s.rooms.GetBySID(ctx, room.SID); err == nil {
		room = stored
	}

	out := &CreatedRoom{Room: room}
	if !join {
		return out, nil
	}
	tok, err := s.issue(ctx, user, room.Name, room.ID)
	if err != nil {
		return out, utils.E(utils.CodeInternal, op, "room created but token failed", err)
	}
	out.Token = tok
	return out, nil
}

func (s *roomService) List(ctx context.Context, limit int) ([]models.Room, error) {
	const op = "RoomService.List"

	out, err := s.rooms.List(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list rooms", err)
	}
	return out, nil
}

func (s *roomService) Delete(ctx context.Context, userID, roomName string) error {
	const op = "RoomService.Delete"

	if strings.TrimSpace(roomName) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "roomName is required", nil)
	}
	n, err := s.rooms.DeleteByNameAndUser(ctx, roomName, userID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete room", err)
	}
	if n == 0 {
		return utils.E(utils.CodeNotFound, op, "room not found", utils.ErrNotFound)
	}

	if err := s.media.DeleteRoom(ctx, roomName); err != nil && !errors.Is(err, transport.ErrRoomNotFound) {
		return utils.E(utils.CodeUnavailable, op, "deleted locally but media service delete failed", err)
	}
	return nil
}

func (s *roomService) CreateToken(ctx context.Context, user RoomUser, roomName string) (*IssuedToken, error) {
	const op = "RoomService.CreateToken"

	if strings.TrimSpace(roomName) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "roomName is required", nil)
	}

	roomID := ""
	room, err := s.rooms.GetByName(ctx, roomName)
	switch {
	case err == nil:
		roomID = room.ID
	case !errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeInternal, op, "failed to load room", err)
	}

	tok, err := s.issue(ctx, user, roomName, roomID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create token", err)
	}
	return tok, nil
}

// issue signs a join token and records it when the room is known locally.
func (s *roomService) issue(ctx context.Context, user RoomUser, roomName, roomID string) (*IssuedToken, error) {
	identity := user.Name
	if identity == "" {
		identity = user.ID
	}
	raw, exp, err := s.signer.JoinToken(identity, user.Name, roomName, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	if roomID != "" {
		rec := &models.RoomToken{
			ID:        uuid.NewString(),
			RoomID:    roomID,
			UserID:    user.ID,
			Token:     raw,
			ExpiresAt: exp,
		}
		if err := s.tokens.Insert(ctx, rec); err != nil {
			return nil, err
		}
	}
	return &IssuedToken{Token: raw, ExpiresAt: exp}, nil
}

func (s *roomService) IsCreator(ctx context.Context, userID, roomSID string) (bool, error) {
	const op = "RoomService.IsCreator"

	if roomSID == "" {
		return false, utils.E(utils.CodeInvalidArgument, op, "roomSid is required", nil)
	}
	room, err := s.rooms.GetBySID(ctx, roomSID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return false, nil
		}
		return false, utils.E(utils.CodeInternal, op, "failed to load room", err)
	}
	return room.UserID == userID, nil
}

func (s *roomService) Details(ctx context.Context, roomSID string) (*models.Room, error) {
	const op = "RoomService.Details"

	if roomSID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "roomSid is required", nil)
	}
	room, err := s.rooms.GetBySID(ctx, roomSID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "room not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load room", err)
	}

	// Live numbers win; the stored row is enough when the media service is down.
	live, err := s.media.ListRooms(ctx, room.Name)
	if err != nil {
		s.log.WithError(err).WithField("room_sid", roomSID).Warn("live room lookup failed")
		return room, nil
	}
	for _, lr := range live {
		if lr.SID != roomSID {
			continue
		}
		room.NumParticipants = lr.NumParticipants
		room.NumPublishers = lr.NumPublishers
		room.EmptyTimeout = lr.EmptyTimeout
		room.MaxParticipants = lr.MaxParticipants
		room.ActiveRecording = lr.ActiveRecording
		break
	}
	return room, nil
}

func toModel(r *transport.Room) *models.Room {
	codecs := make([]string, 0, len(r.EnabledCodecs))
	for _, c := range r.EnabledCodecs {
		codecs = append(codecs, c.Mime)
	}
	var details datatypes.JSON
	if b, err := json.Marshal(r); err == nil {
		details = datatypes.JSON(b)
	}
	return &models.Room{
		SID:              r.SID,
		Name:             r.Name,
		EmptyTimeout:     r.EmptyTimeout,
		DepartureTimeout: r.DepartureTimeout,
		MaxParticipants:  r.MaxParticipants,
		CreationTime:     r.CreationTime,
		Metadata:         r.Metadata,
		NumParticipants:  r.NumParticipants,
		NumPublishers:    r.NumPublishers,
		ActiveRecording:  r.ActiveRecording,
		Codecs:           codecs,
		Details:          details,
	}
}
