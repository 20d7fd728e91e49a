package api

import (
	"github.com/gin-gonic/gin"

	"github.com/astraljournal/lunarlog/internal/handlers"
)

func registerJournalRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, h *handlers.JournalHandler) {
	entries := api.Group("/journal/entries", requireAuth)
	{
		entries.POST("", h.Create)
		entries.GET("", h.List)
		entries.GET("/:id", h.Get)
		entries.PATCH("/:id", h.Update)
		entries.DELETE("/:id", h.Delete)
	}
}
