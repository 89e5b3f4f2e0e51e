package router

import (
	"github.com/gin-gonic/gin"

	"draftforge.app/engine/internal/http/handler"
)

func JobRouter(router *gin.RouterGroup, jobs *handler.JobHandler, streams *handler.StreamHandler) {
	router.POST("", jobs.Submit)
	router.GET("", jobs.List)
	router.GET("/:id", jobs.Get)
	router.GET("/:id/events", jobs.Events)
	router.GET("/:id/stream", streams.SSE)
	router.GET("/:id/ws", streams.WebSocket)
}
