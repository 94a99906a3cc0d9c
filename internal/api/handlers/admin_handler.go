package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/reassembly"
	"github.com/yoockh/speechrelay/internal/services"
	"github.com/yoockh/speechrelay/internal/translation"
)

type AdminHandler struct {
	audio      services.AudioService
	translator translation.Service
}

func NewAdminHandler(audio services.AudioService, translator translation.Service) *AdminHandler {
	return &AdminHandler{audio: audio, translator: translator}
}

type RelayStats struct {
	Reassembly              reassembly.Stats `json:"reassembly"`
	TranslationCacheEntries int              `json:"translation_cache_entries"`
}

func (h *AdminHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, RelayStats{
		Reassembly:              h.audio.Stats(),
		TranslationCacheEntries: h.translator.CacheSize(),
	})
}
