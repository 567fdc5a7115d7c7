package api

import (
	"adventcal/config"
	"adventcal/db"
	"adventcal/utils"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// now is the clock used for unlock gating and timestamps.
var now = time.Now

// healthChecker is implemented by stores that can ping their backend.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter wires every route onto a new gin engine. metrics may be nil.
func NewRouter(repo *db.Repository, cfg *config.Config, metrics *Metrics) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	if metrics != nil {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	router.GET("/healthz", func(c *gin.Context) {
		HealthHandler(c, repo)
	})
	router.GET("/stats", func(c *gin.Context) {
		StatsHandler(c, repo)
	})

	// --- Public Routes (No Auth Required) ---
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/anonymous", func(c *gin.Context) {
			AnonymousSignInHandler(c, repo, cfg, metrics)
		})
		authGroup.POST("/refresh", func(c *gin.Context) {
			RefreshTokenHandler(c, repo, cfg)
		})
	}

	// --- Protected Routes (Auth Required) ---
	authMiddleware := utils.AuthMiddleware(cfg)
	ensureUser := ensureUserMiddleware(repo)

	router.POST("/auth/logout", authMiddleware, func(c *gin.Context) {
		LogoutHandler(c, repo, cfg)
	})

	userGroup := router.Group("/users")
	userGroup.Use(authMiddleware, ensureUser)
	{
		userGroup.GET("/me", func(c *gin.Context) {
			GetUserMeHandler(c, repo, cfg)
		})
		userGroup.PUT("/me", func(c *gin.Context) {
			UpdateUserMeHandler(c, repo, cfg)
		})
	}

	calendarGroup := router.Group("/calendars")
	calendarGroup.Use(authMiddleware, ensureUser)
	{
		calendarGroup.POST("", func(c *gin.Context) {
			CreateCalendarHandler(c, repo, cfg, metrics)
		})
		calendarGroup.GET("", func(c *gin.Context) {
			ListCalendarsHandler(c, repo, cfg)
		})
		calendarGroup.GET("/:id", func(c *gin.Context) {
			GetCalendarHandler(c, repo, cfg)
		})
		calendarGroup.DELETE("/:id", func(c *gin.Context) {
			DeleteCalendarHandler(c, repo, cfg)
		})
		calendarGroup.PUT("/:id/recipients/:uid", func(c *gin.Context) {
			ShareCalendarHandler(c, repo, cfg, metrics)
		})

		doorGroup := calendarGroup.Group("/:id/doors")
		{
			doorGroup.GET("/:day", func(c *gin.Context) {
				GetDoorHandler(c, repo, cfg)
			})
			doorGroup.PUT("/:day", func(c *gin.Context) {
				UpdateDoorHandler(c, repo, cfg, metrics)
			})
			doorGroup.POST("/:day/unlock", func(c *gin.Context) {
				UnlockDoorHandler(c, repo, cfg, metrics)
			})
		}
	}

	// --- Swagger Route ---
	router.StaticFS("/docs", http.Dir("docs"))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	return router
}

// HealthHandler reports whether the document store is reachable.
// @Summary      Health Check
// @Description  Returns `{"status":"ok"}` when the service and its document store are reachable.
// @Tags         Ops
// @Produce      json
// @Success      200  {object}  map[string]string "The service is healthy."
// @Failure      503  {object}  utils.APIError    "The document store did not answer."
// @Router       /healthz [get]
func HealthHandler(c *gin.Context, repo *db.Repository) {
	if hc, ok := repo.Store().(healthChecker); ok {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := hc.HealthCheck(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("health check failed")
			utils.GinError(c, http.StatusServiceUnavailable, "Document store unavailable.")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatsHandler reports document counts for operators.
// @Summary      Store Statistics
// @Description  Counts stored calendars, complete calendars, opened doors and users.
// @Tags         Ops
// @Produce      json
// @Success      200  {object}  db.Stats
// @Failure      500  {object}  utils.APIError "The store could not be listed."
// @Router       /stats [get]
func StatsHandler(c *gin.Context, repo *db.Repository) {
	stats, err := repo.Stats(c.Request.Context())
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to collect stats")
		utils.GinInternalServerError(c, "Failed to collect statistics.")
		return
	}
	c.JSON(http.StatusOK, stats)
}
