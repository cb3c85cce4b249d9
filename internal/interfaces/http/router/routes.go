package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由，未提供的处理器对应的路由不注册
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers, limiter gin.HandlerFunc) {
	if h.Generation != nil {
		generations := v1.Group("/generations", limiter)
		{
			generations.POST("", h.Generation.Enqueue)
			generations.POST("/stream", h.Generation.Stream)
		}
	}

	if h.Session != nil {
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.Session.List)
			sessions.GET("/:sid", h.Session.Get)
			sessions.GET("/:sid/files", h.Session.Files)
			sessions.DELETE("/:sid", h.Session.Delete)
		}
	}

	if h.Template != nil {
		templates := v1.Group("/templates")
		{
			templates.GET("", h.Template.List)
			templates.POST("", h.Template.Create)
			templates.GET("/:tid", h.Template.Get)
			templates.PUT("/:tid", h.Template.Update)
			templates.DELETE("/:tid", h.Template.Delete)
		}
	}

	if h.Preference != nil {
		prefs := v1.Group("/preferences")
		{
			prefs.GET("/:client_id", h.Preference.Get)
			prefs.PUT("/:client_id", h.Preference.Put)
		}
	}

	if h.TTS != nil {
		v1.POST("/tts/chunks", h.TTS.Chunks)
	}
}
