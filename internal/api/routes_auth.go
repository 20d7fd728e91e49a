package api

import (
	"github.com/gin-gonic/gin"

	"github.com/astraljournal/lunarlog/internal/handlers"
)

func registerAuthRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, h *handlers.AuthHandler) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	me := api.Group("/auth", requireAuth)
	{
		me.GET("/me", h.Me)
		me.PATCH("/me", h.UpdateProfile)
		me.POST("/password", h.ChangePassword)
	}
}
