package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/services"
	"github.com/yoockh/speechrelay/internal/utils"
)

type TranscriptHandler struct {
	svc services.UtteranceLogService
}

func NewTranscriptHandler(svc services.UtteranceLogService) *TranscriptHandler {
	return &TranscriptHandler{svc: svc}
}

// ListByRoom returns the newest utterances of a room. Optional query: since (RFC3339), limit.
func (h *TranscriptHandler) ListByRoom(c *gin.Context) {
	const op = "TranscriptHandler.ListByRoom"

	if _, ok := requireUserID(c); !ok {
		return
	}

	var since time.Time
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "since must be RFC3339", err))
			return
		}
		since = t
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "limit must be a positive integer", err))
		return
	}

	items, err := h.svc.ListByRoom(c.Request.Context(), c.Param("room_id"), since, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
