// Package server wires HTTP handlers into a gin engine for the chat relay
// via routing helpers.
package server

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures and returns a gin engine with all application routes:
// the WebSocket endpoint, the health check, and either the configured
// frontend build or the built-in chat page.
func SetupRoutes(gateway *Gateway) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), requestLogger(gateway.log))

	router.GET("/ws", WebSocketHandler(gateway))
	router.GET("/health", HealthHandler)

	if dir := gateway.cfg.StaticDir; dir != "" {
		router.StaticFile("/", filepath.Join(dir, "index.html"))
		router.Static("/assets", filepath.Join(dir, "assets"))
		router.Static("/static", dir)
	} else {
		router.GET("/", ChatPageHandler)
	}

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
