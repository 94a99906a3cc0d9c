package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestLiveKit(t *testing.T, h http.HandlerFunc) (*LiveKit, *TokenSigner) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	signer, err := NewTokenSigner("APIkey", "devsecret-devsecret-devsecret-devsecret")
	if err != nil {
		t.Fatal(err)
	}
	return NewLiveKit(srv.URL, signer, 0), signer
}

func TestLiveKitSendData(t *testing.T) {
	var body map[string]any
	var auth string
	lk, signer := newTestLiveKit(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/twirp/livekit.RoomService/SendData" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = w.Write([]byte(`{}`))
	})

	if err := lk.SendData(context.Background(), "standup", []byte(`{"type":"transcription"}`), Reliable); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if body["room"] != "standup" || body["kind"] != "RELIABLE" {
		t.Errorf("body = %v", body)
	}
	// []byte fields travel as base64.
	if body["data"] != "eyJ0eXBlIjoidHJhbnNjcmlwdGlvbiJ9" {
		t.Errorf("data = %v", body["data"])
	}

	claims, err := signer.Parse(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		t.Fatalf("service token invalid: %v", err)
	}
	if claims.Video == nil || !claims.Video.RoomAdmin || claims.Video.Room != "standup" {
		t.Errorf("grant = %+v", claims.Video)
	}
}

func TestLiveKitCreateRoom(t *testing.T) {
	lk, _ := newTestLiveKit(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sid":"RM_1","name":"standup","emptyTimeout":1800,"max_participants":20,"creationTime":"1735689600","enabledCodecs":[{"mime":"audio/opus"}]}`))
	})

	room, err := lk.CreateRoom(context.Background(), "standup", DefaultRoomOptions())
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.SID != "RM_1" || room.EmptyTimeout != 1800 || room.MaxParticipants != 20 || room.CreationTime != 1735689600 {
		t.Errorf("room = %+v", room)
	}
	if len(room.EnabledCodecs) != 1 || room.EnabledCodecs[0].Mime != "audio/opus" {
		t.Errorf("codecs = %+v", room.EnabledCodecs)
	}
}

func TestLiveKitSendDataLossy(t *testing.T) {
	var body map[string]any
	lk, _ := newTestLiveKit(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = w.Write([]byte(`{}`))
	})

	if err := lk.SendData(context.Background(), "standup", []byte("x"), Lossy); err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if body["kind"] != "LOSSY" {
		t.Errorf("kind = %v, want LOSSY", body["kind"])
	}
}

func TestLiveKitNotFound(t *testing.T) {
	lk, _ := newTestLiveKit(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","msg":"room not found"}`))
	})

	if err := lk.DeleteRoom(context.Background(), "gone"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestHTTPBase(t *testing.T) {
	cases := map[string]string{
		"wss://demo.livekit.cloud/": "https://demo.livekit.cloud",
		"ws://localhost:7880":       "http://localhost:7880",
		"https://lk.example.com":    "https://lk.example.com",
		"lk.example.com":            "https://lk.example.com",
	}
	for in, want := range cases {
		if got := httpBase(in); got != want {
			t.Errorf("httpBase(%q) = %q, want %q", in, got, want)
		}
	}
}
