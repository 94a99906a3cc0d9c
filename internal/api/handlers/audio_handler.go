package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/services"
)

type AudioHandler struct {
	svc services.AudioService
}

func NewAudioHandler(svc services.AudioService) *AudioHandler {
	return &AudioHandler{svc: svc}
}

type ProcessAudioRequest struct {
	Audio              string `json:"audio" binding:"required"`
	UserID             string `json:"userId"`
	RoomID             string `json:"roomId"`
	TargetLanguageCode string `json:"targetLanguageCode"`
	ChunkIndex         int    `json:"chunkIndex"`
	TotalChunks        int    `json:"totalChunks"`
}

func (h *AudioHandler) Process(c *gin.Context) {
	var req ProcessAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AudioHandler.Process", err))
		return
	}

	out, err := h.svc.HandleFragment(c.Request.Context(), services.FragmentInput{
		Audio:          req.Audio,
		RoomID:         req.RoomID,
		UserID:         req.UserID,
		TargetLanguage: req.TargetLanguageCode,
		ChunkIndex:     req.ChunkIndex,
		TotalChunks:    req.TotalChunks,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if out.Ack != nil {
		c.JSON(http.StatusOK, out.Ack)
		return
	}
	c.JSON(http.StatusOK, out.Result)
}

type TTSRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language"`
}

type TTSResponse struct {
	AudioContent string `json:"audioContent"`
}

func (h *AudioHandler) TTS(c *gin.Context) {
	var req TTSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AudioHandler.TTS", err))
		return
	}

	audio, err := h.svc.Synthesize(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, TTSResponse{AudioContent: audio})
}
