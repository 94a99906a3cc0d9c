package handlers

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/speechrelay/internal/audio"
	"github.com/yoockh/speechrelay/internal/pipeline"
	"github.com/yoockh/speechrelay/internal/services"
	"github.com/yoockh/speechrelay/internal/utils"
)

// Streaming ingest windows 3s of 16 kHz audio with 0.5s overlap.
const (
	streamSampleRate = 16000
	streamWindow     = 3 * streamSampleRate
	streamOverlap    = streamSampleRate / 2
	streamBacklog    = 4

	wsPongWait  = 60 * time.Second
	wsPingEvery = wsPongWait * 9 / 10
	wsWriteWait = 10 * time.Second
)

// RoomSubscriber opens a pub/sub subscription on a room's data channel.
type RoomSubscriber interface {
	Subscribe(ctx context.Context, room string) *redis.PubSub
}

type WSHandler struct {
	audio    services.AudioService
	rooms    RoomSubscriber // nil when the transport has no local fan-out
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(audioSvc services.AudioService, rooms RoomSubscriber, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WSHandler{
		audio: audioSvc,
		rooms: rooms,
		log:   log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

// wsClientMsg is a control message. Audio arrives as binary frames of 16 kHz
// mono little-endian PCM16.
type wsClientMsg struct {
	Type           string `json:"type"` // config|flush|end
	TargetLanguage string `json:"targetLanguage"`
}

type wsServerMsg struct {
	Type string `json:"type"`
	*pipeline.Result
	Code    utils.Code `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) write(kind int, b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(kind, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.write(websocket.TextMessage, b)
}

func (w *wsConn) writeError(code utils.Code, msg string) {
	_ = w.writeJSON(wsServerMsg{Type: "error", Code: code, Message: msg})
}

// pcmSamples reads little-endian PCM16; a trailing odd byte is dropped.
func pcmSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func (h *WSHandler) RoomWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	roomID := c.Param("room_id")
	if roomID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.RoomWS", "missing room_id", nil))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	var feed <-chan *redis.Message
	if h.rooms != nil {
		pubsub := h.rooms.Subscribe(ctx, roomID)
		defer pubsub.Close()
		feed = pubsub.Channel()
	}

	ring, err := audio.NewOverlapRing(streamWindow, streamOverlap)
	if err != nil {
		log.WithError(err).Error("ring setup failed")
		return
	}

	// One pipeline run at a time per connection, in arrival order.
	windows := make(chan services.StreamWindow, streamBacklog)
	procDone := make(chan struct{})
	go func() {
		defer close(procDone)
		for w := range windows {
			res, err := h.audio.ProcessWindow(ctx, w)
			if err != nil {
				wc.writeError(utils.CodeOf(err), "failed to process audio window")
				continue
			}
			if res.Text == "" && res.AudioContent == "" {
				continue
			}
			if err := wc.writeJSON(wsServerMsg{Type: "result", Result: res}); err != nil {
				return
			}
		}
	}()

	target := ""
	enqueue := func(samples []int16) {
		if len(samples) == 0 {
			return
		}
		w := services.StreamWindow{
			RoomID:         roomID,
			UserID:         userID,
			TargetLanguage: target,
			Samples:        samples,
			SampleRate:     streamSampleRate,
		}
		select {
		case windows <- w:
		default:
			log.Warn("pipeline backlog full, dropping audio window")
		}
	}

	// reader: WS -> ring -> pipeline
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer close(windows)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})

		for {
			kind, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			if kind == websocket.BinaryMessage {
				for _, w := range ring.Write(pcmSamples(data)) {
					enqueue(w)
				}
				continue
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				wc.writeError(utils.CodeInvalidArgument, "invalid json")
				continue
			}

			switch msg.Type {
			case "config":
				target = msg.TargetLanguage
				_ = wc.writeJSON(wsServerMsg{Type: "ready"})
			case "flush":
				enqueue(ring.Flush())
			case "end":
				enqueue(ring.Flush())
				return
			default:
				wc.writeError(utils.CodeInvalidArgument, "unknown message type")
			}
		}
	}()

	// writer: room data channel -> WS, plus keepalive pings
	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()
	for {
		select {
		case <-readDone:
			<-procDone
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := wc.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case m, ok := <-feed:
			if !ok {
				feed = nil
				continue
			}
			// forward as-is (broadcast payloads are JSON)
			if err := wc.write(websocket.TextMessage, []byte(m.Payload)); err != nil {
				return
			}
		}
	}
}
