package approuters

import (
	"github.com/Trushar30/AURA-Message/internal/configuration"
	"github.com/Trushar30/AURA-Message/internal/handler"
	"github.com/gin-gonic/gin"
)

func ConversationRouters(router *gin.Engine, container *configuration.Container) {
	conversationRoute := router.Group("/cf/api/conversations", handler.RequireUser(container.Verifier, container.Logger))
	{
		conversationRoute.GET("", container.ConversationHandler.GetConversations)
		conversationRoute.POST("/direct", container.ConversationHandler.StartDirect)
		conversationRoute.POST("/group", container.ConversationHandler.CreateGroup)
		conversationRoute.GET("/:conversationId/messages", container.ConversationHandler.GetRoomMessages)
	}
}
