package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/translation"
	"github.com/yoockh/speechrelay/internal/utils"
)

type TranslateHandler struct {
	svc translation.Service
}

func NewTranslateHandler(svc translation.Service) *TranslateHandler {
	return &TranslateHandler{svc: svc}
}

type TranslateRequest struct {
	Text       string `json:"text" binding:"required"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang" binding:"required"`
}

type TranslateResponse struct {
	Success bool `json:"success"`
	*translation.Translation
}

func (h *TranslateHandler) Translate(c *gin.Context) {
	var req TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TranslateHandler.Translate", "text and targetLang are required", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TranslateHandler.Translate", "text is required", nil))
		return
	}

	out, err := h.svc.Translate(c.Request.Context(), req.Text, req.SourceLang, req.TargetLang)
	if err != nil && !errors.Is(err, translation.ErrTranslationEngine) {
		writeError(c, err)
		return
	}
	// Engine failures still answer 200 with the original text and fallback set.
	c.JSON(http.StatusOK, TranslateResponse{Success: true, Translation: out})
}
