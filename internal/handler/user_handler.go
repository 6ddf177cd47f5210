package handler

import (
	"errors"
	"net/http"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/Trushar30/AURA-Message/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler interface {
	GetMe(c *gin.Context)
	GetOnlineUsers(c *gin.Context)
	GetUserPresence(c *gin.Context)
}

type userHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) UserHandler {
	return &userHandler{
		service: service,
	}
}

func (h *userHandler) GetMe(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), CurrentUser(c).UserID())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	respond(c, http.StatusOK, user, "Profile retrieved successfully")
}

// GetOnlineUsers accepts an optional ?status= filter
func (h *userHandler) GetOnlineUsers(c *gin.Context) {
	status := model.UserStatus(c.Query("status"))
	if status != "" && !status.Selectable() {
		fail(c, http.StatusBadRequest, "Invalid status filter")
		return
	}
	respond(c, http.StatusOK, h.service.OnlineUsers(status), "Online users retrieved successfully")
}

func (h *userHandler) GetUserPresence(c *gin.Context) {
	presence, err := h.service.UserPresence(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, "User not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to load presence")
		return
	}
	respond(c, http.StatusOK, presence, "Presence retrieved successfully")
}
