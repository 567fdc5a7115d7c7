package api

import (
	"adventcal/db"
	"adventcal/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger emits one zerolog event per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := zerolog.InfoLevel
		switch {
		case status >= 500:
			level = zerolog.ErrorLevel
		case status >= 400:
			level = zerolog.WarnLevel
		}

		ev := log.WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if uid := c.GetString("userID"); uid != "" {
			ev = ev.Str("uid", uid)
		}
		ev.Msg("request")
	}
}

// ensureUserMiddleware creates the authenticated user's record on first contact.
// It runs after utils.AuthMiddleware.
func ensureUserMiddleware(repo *db.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		if uid == "" {
			utils.GinInternalServerError(c, "User ID not found in context.")
			return
		}
		if _, err := repo.EnsureUser(c.Request.Context(), uid); err != nil {
			log.Error().Stack().Err(err).Str("uid", uid).Msg("failed to ensure user")
			utils.GinInternalServerError(c, "Failed to load user.")
			return
		}
		c.Next()
	}
}
