package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/services"
)

type RoomHandler struct {
	svc services.RoomService
}

func NewRoomHandler(svc services.RoomService) *RoomHandler {
	return &RoomHandler{svc: svc}
}

func (h *RoomHandler) user(c *gin.Context) (services.RoomUser, bool) {
	id, ok := requireUserID(c)
	if !ok {
		return services.RoomUser{}, false
	}
	return services.RoomUser{ID: id, Name: userName(c)}, true
}

type CreateRoomRequest struct {
	RoomName string `json:"roomName" binding:"required"`
	GoRoom   bool   `json:"goRoom"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("RoomHandler.Create", err))
		return
	}

	out, err := h.svc.Create(c.Request.Context(), user, req.RoomName, req.GoRoom)
	if err != nil {
		writeError(c, err)
		return
	}
	if out.Token != nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "room": out.Room, "token": out.Token.Token, "expiresAt": out.Token.ExpiresAt})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "room": out.Room})
}

func (h *RoomHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rooms, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

type RoomNameRequest struct {
	RoomName string `json:"roomName" binding:"required"`
}

func (h *RoomHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req RoomNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("RoomHandler.Delete", err))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, req.RoomName); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Room deleted successfully"})
}

func (h *RoomHandler) CreateToken(c *gin.Context) {
	user, ok := h.user(c)
	if !ok {
		return
	}

	var req RoomNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("RoomHandler.CreateToken", err))
		return
	}

	tok, err := h.svc.CreateToken(c.Request.Context(), user, req.RoomName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": tok.Token, "expiresAt": tok.ExpiresAt})
}

type RoomSIDRequest struct {
	RoomSID string `json:"roomSid" binding:"required"`
}

func (h *RoomHandler) Creator(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req RoomSIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("RoomHandler.Creator", err))
		return
	}

	isCreator, err := h.svc.IsCreator(c.Request.Context(), userID, req.RoomSID)
	if err != nil {
		writeError(c, err)
		return
	}
	msg := "Not Room Creator"
	if isCreator {
		msg = "Room Creator"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg, "roomCreater": isCreator})
}

func (h *RoomHandler) Details(c *gin.Context) {
	var req RoomSIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("RoomHandler.Details", err))
		return
	}

	room, err := h.svc.Details(c.Request.Context(), req.RoomSID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}
