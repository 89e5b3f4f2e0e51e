package router

import (
	"github.com/gin-gonic/gin"

	"draftforge.app/engine/internal/event"
	"draftforge.app/engine/internal/http/handler"
	"draftforge.app/engine/internal/service"
)

func SetupRoutes(router *gin.Engine, jobService service.JobService, bus *event.Bus) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		jobHandler := handler.NewJobHandler(jobService)
		streamHandler := handler.NewStreamHandler(jobService, bus)
		JobRouter(v1.Group("/jobs"), jobHandler, streamHandler)
	}
}
