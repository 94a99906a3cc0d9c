package services

import (
	"context"
	"errors"
	"testing"

	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/transport"
	"github.com/yoockh/speechrelay/internal/utils"
)

type roomHarness struct {
	svc    RoomService
	rooms  *memRooms
	tokens *memTokens
	media  *fakeMedia
	signer *transport.TokenSigner
	owner  RoomUser
}

func newRoomHarness(t *testing.T) *roomHarness {
	t.Helper()
	users := newMemUsers()
	owner := RoomUser{ID: "u-1", Name: "alice"}
	_ = users.Create(context.Background(), &models.User{ID: owner.ID, Name: owner.Name, Email: "alice@example.com"})

	signer, err := transport.NewTokenSigner("APIkey", "devsecret-devsecret-devsecret-devsecret")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	h := &roomHarness{
		rooms:  &memRooms{},
		tokens: &memTokens{},
		media:  newFakeMedia(),
		signer: signer,
		owner:  owner,
	}
	h.svc = NewRoomService(h.rooms, h.tokens, users, h.media, signer, nil)
	return h
}

func TestRoomCreateWithoutJoin(t *testing.T) {
	h := newRoomHarness(t)

	out, err := h.svc.Create(context.Background(), h.owner, "standup", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Token != nil {
		t.Errorf("token issued without join")
	}
	if out.Room.SID != "RM_standup" || out.Room.UserID != h.owner.ID {
		t.Errorf("room = %+v", out.Room)
	}
	if out.Room.Metadata != h.owner.ID {
		t.Errorf("metadata = %q, want creator id", out.Room.Metadata)
	}
	if len(out.Room.Codecs) != 1 || out.Room.Codecs[0] != "audio/opus" {
		t.Errorf("codecs = %v", out.Room.Codecs)
	}
	if out.Room.EmptyTimeout != 1800 || out.Room.MaxParticipants != 20 {
		t.Errorf("room options = %d/%d", out.Room.EmptyTimeout, out.Room.MaxParticipants)
	}
	if len(out.Room.Details) == 0 {
		t.Errorf("details not captured")
	}
}

func TestRoomCreateWithJoinIssuesToken(t *testing.T) {
	h := newRoomHarness(t)

	out, err := h.svc.Create(context.Background(), h.owner, "standup", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if out.Token == nil || out.Token.Token == "" {
		t.Fatalf("no token")
	}
	claims, err := h.signer.Parse(out.Token.Token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Video == nil || !claims.Video.RoomJoin || claims.Video.Room != "standup" {
		t.Errorf("grant = %+v", claims.Video)
	}
	if len(h.tokens.tokens) != 1 || h.tokens.tokens[0].RoomID != out.Room.ID {
		t.Errorf("token records = %+v", h.tokens.tokens)
	}
}

func TestRoomCreateIsIdempotentPerSID(t *testing.T) {
	h := newRoomHarness(t)
	ctx := context.Background()

	first, err := h.svc.Create(ctx, h.owner, "standup", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := h.svc.Create(ctx, h.owner, "standup", false)
	if err != nil {
		t.Fatalf("Create again: %v", err)
	}
	if first.Room.ID != second.Room.ID {
		t.Errorf("second create got id %s, want %s", second.Room.ID, first.Room.ID)
	}
	if len(h.rooms.rooms) != 1 {
		t.Errorf("stored rooms = %d", len(h.rooms.rooms))
	}
}

func TestRoomCreateValidation(t *testing.T) {
	h := newRoomHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Create(ctx, h.owner, "  ", false); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("blank name: %v", err)
	}
	if _, err := h.svc.Create(ctx, RoomUser{ID: "ghost"}, "x", false); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("unknown user: %v", err)
	}
}

func TestRoomDelete(t *testing.T) {
	h := newRoomHarness(t)
	ctx := context.Background()
	if _, err := h.svc.Create(ctx, h.owner, "standup", false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := h.svc.Delete(ctx, "someone-else", "standup"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("delete by non-owner: %v", err)
	}
	if err := h.svc.Delete(ctx, h.owner.ID, "standup"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(h.media.deleted) != 1 {
		t.Errorf("media deletes = %v", h.media.deleted)
	}
	if err := h.svc.Delete(ctx, h.owner.ID, "standup"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestRoomCreateTokenForUnknownRoom(t *testing.T) {
	h := newRoomHarness(t)

	tok, err := h.svc.CreateToken(context.Background(), h.owner, "elsewhere")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if tok.Token == "" {
		t.Fatalf("empty token")
	}
	if len(h.tokens.tokens) != 0 {
		t.Errorf("token recorded for a room not stored locally")
	}
}

func TestRoomIsCreator(t *testing.T) {
	h := newRoomHarness(t)
	ctx := context.Background()
	out, _ := h.svc.Create(ctx, h.owner, "standup", false)

	ok, err := h.svc.IsCreator(ctx, h.owner.ID, out.Room.SID)
	if err != nil || !ok {
		t.Errorf("owner: ok=%v err=%v", ok, err)
	}
	ok, err = h.svc.IsCreator(ctx, "u-2", out.Room.SID)
	if err != nil || ok {
		t.Errorf("other user: ok=%v err=%v", ok, err)
	}
	ok, err = h.svc.IsCreator(ctx, h.owner.ID, "RM_missing")
	if err != nil || ok {
		t.Errorf("missing room: ok=%v err=%v", ok, err)
	}
}

func TestRoomDetailsMergesLiveData(t *testing.T) {
	h := newRoomHarness(t)
	ctx := context.Background()
	out, _ := h.svc.Create(ctx, h.owner, "standup", false)

	live := h.media.rooms["standup"]
	live.NumParticipants = 4
	live.ActiveRecording = true
	h.media.rooms["standup"] = live

	got, err := h.svc.Details(ctx, out.Room.SID)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if got.NumParticipants != 4 || !got.ActiveRecording {
		t.Errorf("live data not merged: %+v", got)
	}

	h.media.listErr = errors.New("down")
	got, err = h.svc.Details(ctx, out.Room.SID)
	if err != nil {
		t.Fatalf("Details with media down: %v", err)
	}
	if got.NumParticipants != 0 {
		t.Errorf("stored row should be returned as is, got %d participants", got.NumParticipants)
	}

	if _, err := h.svc.Details(ctx, "RM_missing"); !utils.IsCode(err, utils.CodeNotFound) {
		t.Errorf("missing room: %v", err)
	}
}
