package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yoockh/speechrelay/internal/api/handlers"
	"github.com/yoockh/speechrelay/internal/api/middleware"
)

type Deps struct {
	JWTSecret string
	Gatherer  prometheus.Gatherer // nil disables /metrics

	Audio       *handlers.AudioHandler
	Translate   *handlers.TranslateHandler
	Auth        *handlers.AuthHandler
	Room        *handlers.RoomHandler
	Transcripts *handlers.TranscriptHandler
	Admin       *handlers.AdminHandler
	WS          *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Public relay endpoints
	r.POST("/audio/process", d.Audio.Process)
	r.POST("/audio/tts", d.Audio.TTS)
	r.POST("/translate", d.Translate.Translate)

	r.POST("/auth/register", d.Auth.Register)
	r.POST("/auth/login", d.Auth.Login)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.JWTSecret))

	auth.GET("/auth/profile", d.Auth.Profile)
	auth.PATCH("/auth/update-profile", d.Auth.UpdateProfile)
	auth.POST("/auth/status", d.Auth.SetStatus)
	auth.POST("/user/upload-image", d.Auth.UploadImage)

	auth.POST("/rooms", d.Room.Create)
	auth.GET("/rooms", d.Room.List)
	auth.DELETE("/rooms", d.Room.Delete)
	auth.POST("/rooms/createToken", d.Room.CreateToken)
	auth.POST("/rooms/getRoomCreater", d.Room.Creator)
	auth.POST("/rooms/getRoomDetails", d.Room.Details)
	auth.GET("/rooms/:room_id/transcripts", d.Transcripts.ListByRoom)

	auth.GET("/admin/relay/stats", middleware.RequireAdmin(), d.Admin.Stats)

	// WebSocket
	auth.GET("/ws/rooms/:room_id", d.WS.RoomWS)
}
