package handler

import (
	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, body any, message string) {
	c.JSON(status, gin.H{
		"HttpStatusCode": status,
		"ResponseBody":   body,
		"IsSuccess":      status < 400,
		"Message":        message,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"HttpStatusCode": status,
		"ResponseBody":   nil,
		"IsSuccess":      false,
		"Message":        message,
	})
}
