package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter はルーティングを設定したginエンジンを作成
func NewRouter(podHandler *PodHandler, eventHandler *EventHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "PodMatch-App"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	users := router.Group("/users/:userId")
	{
		users.PUT("/location", podHandler.PutUserLocation)
		users.GET("/events", eventHandler.ListUserEvents)
		users.GET("/events/:eventId/participation", eventHandler.GetParticipation)
	}

	pods := router.Group("/pods")
	{
		pods.GET("/nearby", podHandler.GetNearbyPods)
		pods.GET("/:podId", podHandler.GetPod)
		pods.GET("/:podId/members", podHandler.GetPodMembers)
	}

	events := router.Group("/events")
	{
		events.GET("", eventHandler.ListEvents)
		events.GET("/:eventId", eventHandler.GetEvent)
		events.POST("/:eventId/join", eventHandler.JoinEvent)
		events.GET("/:eventId/groups", eventHandler.ListGroups)
		events.GET("/:eventId/groups/:groupId", eventHandler.GetGroup)
		events.GET("/:eventId/groups/:groupId/roster", eventHandler.GetGroupRoster)
		events.GET("/:eventId/participants", eventHandler.ListParticipants)
	}

	return router
}

// requestLogger はリクエストごとにzapでアクセスログを出力する
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("HTTP", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("HTTP", fields...)
		default:
			logger.Debug("HTTP", fields...)
		}
	}
}
