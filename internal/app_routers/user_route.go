package approuters

import (
	"github.com/Trushar30/AURA-Message/internal/configuration"
	"github.com/Trushar30/AURA-Message/internal/handler"
	"github.com/gin-gonic/gin"
)

func UserRouters(router *gin.Engine, container *configuration.Container) {
	authed := handler.RequireUser(container.Verifier, container.Logger)

	userRoute := router.Group("/cf/api/users", authed)
	{
		userRoute.GET("/me", container.UserHandler.GetMe)
	}

	presenceRoute := router.Group("/cf/api/presence", authed)
	{
		presenceRoute.GET("/online", container.UserHandler.GetOnlineUsers)
		presenceRoute.GET("/:userId", container.UserHandler.GetUserPresence)
	}
}
