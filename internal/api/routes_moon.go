package api

import (
	"github.com/gin-gonic/gin"

	"github.com/astraljournal/lunarlog/internal/handlers"
)

func registerMoonRoutes(api *gin.RouterGroup, h *handlers.MoonHandler) {
	api.GET("/moon", h.GetMoon)
}
