package api

import (
	"github.com/gin-gonic/gin"

	"github.com/astraljournal/lunarlog/internal/handlers"
)

func registerTarotRoutes(api *gin.RouterGroup, h *handlers.TarotHandler) {
	tarot := api.Group("/tarot")
	{
		tarot.GET("/daily", h.CardOfDay)
		tarot.POST("/draw", h.Draw)
		tarot.GET("/cards", h.ListCards)
		tarot.GET("/cards/:id", h.GetCard)
	}
}
