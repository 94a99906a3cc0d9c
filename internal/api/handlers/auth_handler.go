package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/services"
	"github.com/yoockh/speechrelay/internal/utils"
)

// maxImageBytes caps profile image uploads.
const maxImageBytes = 5 << 20

type AuthHandler struct {
	svc services.UserService
}

func NewAuthHandler(svc services.UserService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	PhoneNo  string `json:"phoneNo"`
	Language string `json:"language"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AuthHandler.Register", err))
		return
	}

	u, err := h.svc.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		PhoneNo:  req.PhoneNo,
		Language: req.Language,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": u})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AuthHandler.Login", err))
		return
	}

	out, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": out.User, "token": out.Token, "expiresAt": out.ExpiresAt})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	u, err := h.svc.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

type UpdateProfileRequest struct {
	Name     *string `json:"name,omitempty"`
	PhoneNo  *string `json:"phoneNo,omitempty"`
	Language *string `json:"language,omitempty"`
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AuthHandler.UpdateProfile", err))
		return
	}

	u, err := h.svc.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		Name:     req.Name,
		PhoneNo:  req.PhoneNo,
		Language: req.Language,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AuthHandler) SetStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("AuthHandler.SetStatus", err))
		return
	}

	if err := h.svc.SetStatus(c.Request.Context(), userID, models.UserStatus(req.Status)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status updated", "status": req.Status})
}

func (h *AuthHandler) UploadImage(c *gin.Context) {
	const op = "AuthHandler.UploadImage"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "no image file uploaded", err))
		return
	}
	if fh.Size > maxImageBytes {
		writeError(c, utils.E(utils.CodeTooLarge, op, "image exceeds 5MB", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "unreadable upload", err))
		return
	}
	defer f.Close()

	url, err := h.svc.UploadProfileImage(c.Request.Context(), userID, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": url})
}
