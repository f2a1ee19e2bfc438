package api

import (
	"TodayInHistory/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, jwtSecret string, log *logger.Logger) *gin.Engine {
	// 不使用 gin.Default()，访问日志统一走 logrus。
	r := gin.New()
	r.Use(gin.Recovery(), AccessLog(log))

	api := r.Group("/api")
	{
		api.GET("/today", h.Today)
		api.GET("/date/:month/:day", h.ByDate)
		api.GET("/health", h.Health)
		api.POST("/clear-cache", AdminAuth(jwtSecret), h.ClearCache)
	}

	return r
}
