// Package api exposes the control engine over HTTP: score queries, alert
// lifecycle operations, the dimension schema and the notification feed.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/repository"
	"github.com/site360/site360-go/internal/dispatch"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/notification"
	"github.com/site360/site360-go/internal/observability"
)

const (
	maxListLimit     = 200
	defaultListLimit = 50
)

// Deps wires the controller's collaborators.
type Deps struct {
	Scores    repository.ControlScoreRepository
	Alerts    repository.AlertRepository
	Lifecycle *dispatch.Lifecycle
	Notifier  *notification.Service
	Metrics   *observability.Metrics
	Rules     []control.ThresholdRule
	// LatestScoreCacheTTL bounds the latest-scores cache; zero disables
	// caching.
	LatestScoreCacheTTL time.Duration
	Log                 logger.Logger
}

// Controller handles the /api/v2 route group.
type Controller struct {
	deps  Deps
	cache *gocache.Cache
}

// New registers all routes on e and returns the controller.
func New(e *echo.Echo, deps Deps) *Controller {
	c := &Controller{deps: deps}
	if deps.LatestScoreCacheTTL > 0 {
		c.cache = gocache.New(deps.LatestScoreCacheTTL, 10*time.Minute)
	}

	e.GET("/healthz", c.Healthz)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	g := e.Group("/api/v2")
	g.GET("/schema", c.GetSchema)
	g.GET("/rules", c.ListRules)

	scores := g.Group("/sites/:site_id/scores")
	scores.GET("/latest", c.GetLatestScores)
	scores.GET("/history", c.GetScoreHistory)

	alerts := g.Group("/alerts")
	alerts.GET("", c.ListAlerts)
	alerts.GET("/:id", c.GetAlert)
	alerts.POST("/:id/acknowledge", c.AcknowledgeAlert)
	alerts.POST("/:id/resolve", c.ResolveAlert)
	alerts.POST("/:id/dismiss", c.DismissAlert)

	g.GET("/notifications", c.ListNotifications)

	return c
}

// Healthz reports process liveness.
func (c *Controller) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetSchema returns the dimension and metric catalog for UI rule builders.
func (c *Controller) GetSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, control.GetSchema())
}

// ListRules returns the threshold rules currently in effect.
func (c *Controller) ListRules(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"rules": c.deps.Rules,
		"count": len(c.deps.Rules),
	})
}

// handleError logs err and returns a generic JSON error response.
func (c *Controller) handleError(ctx echo.Context, err error, message string, status int) error {
	c.deps.Log.Error(message, logger.Error(err))
	return ctx.JSON(status, map[string]string{"error": message})
}
