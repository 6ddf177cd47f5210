package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/Trushar30/AURA-Message/internal/service"
	"github.com/gin-gonic/gin"
)

type ConversationHandler interface {
	GetConversations(c *gin.Context)
	StartDirect(c *gin.Context)
	CreateGroup(c *gin.Context)
	GetRoomMessages(c *gin.Context)
}

type conversationHandler struct {
	service service.ConversationService
}

func NewConversationHandler(service service.ConversationService) ConversationHandler {
	return &conversationHandler{service: service}
}

type directRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
}

type groupRequest struct {
	Name           string   `json:"name" binding:"required"`
	Description    string   `json:"description"`
	ParticipantIDs []string `json:"participantIds"`
}

func (h *conversationHandler) GetConversations(c *gin.Context) {
	conversations, err := h.service.ListConversations(c.Request.Context(), CurrentUser(c).UserID())
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to get conversations")
		return
	}
	respond(c, http.StatusOK, conversations, "Conversations retrieved successfully")
}

func (h *conversationHandler) StartDirect(c *gin.Context) {
	var req directRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "recipientId is required")
		return
	}

	conversation, created, err := h.service.StartDirect(c.Request.Context(), CurrentUser(c).UserID(), req.RecipientID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownRecipient):
			fail(c, http.StatusNotFound, "Recipient not found")
		case errors.Is(err, repo.ErrInvalidDirect):
			fail(c, http.StatusBadRequest, "Cannot start a conversation with yourself")
		default:
			fail(c, http.StatusInternalServerError, "Failed to start conversation")
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(c, status, conversation, "Direct conversation ready")
}

func (h *conversationHandler) CreateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "name is required")
		return
	}

	conversation, err := h.service.CreateGroup(c.Request.Context(), CurrentUser(c).UserID(), req.Name, req.Description, req.ParticipantIDs)
	if err != nil {
		if errors.Is(err, service.ErrUnknownRecipient) {
			fail(c, http.StatusNotFound, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to create group")
		return
	}
	respond(c, http.StatusCreated, conversation, "Group created successfully")
}

func (h *conversationHandler) GetRoomMessages(c *gin.Context) {
	conversationId := c.Param("conversationId")
	page := c.DefaultQuery("page", "1")
	pageNumber, err := strconv.ParseInt(page, 10, 64)
	if err != nil || pageNumber < 1 {
		fail(c, http.StatusBadRequest, "Invalid page number")
		return
	}

	msgs, err := h.service.GetRoomMessages(c.Request.Context(), CurrentUser(c).UserID(), conversationId, pageNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotParticipant) {
			fail(c, http.StatusForbidden, "Not a participant of this conversation")
			return
		}
		fail(c, http.StatusInternalServerError, "Failed to get messages")
		return
	}

	respond(c, http.StatusOK, msgs, "Messages retrieved successfully")
}
