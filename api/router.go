package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/tweetscope/api/handler"
	"github.com/use-agent/tweetscope/api/middleware"
	"github.com/use-agent/tweetscope/config"
	"github.com/use-agent/tweetscope/workflow"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(o *workflow.Orchestrator, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(o, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Runs
	protected.POST("/runs", handler.StartRun(o))
	protected.GET("/runs/current", handler.GetRun(o))
	protected.DELETE("/runs/current", handler.ResetRun(o))
	protected.GET("/runs/current/export", handler.ExportRun(o))

	// Analysis
	protected.POST("/analyze", handler.Analyze(o))

	// Profiles
	profiles := o.Profiles()
	protected.GET("/profiles", handler.ListProfiles(profiles))
	protected.POST("/profiles", handler.CreateProfile(profiles))
	protected.PUT("/profiles/:id", handler.UpdateProfile(profiles))
	protected.DELETE("/profiles/:id", handler.DeleteProfile(profiles))
	protected.POST("/profiles/:id/select", handler.SelectProfile(profiles))

	return r
}
