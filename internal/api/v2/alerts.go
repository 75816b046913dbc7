package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/datastore/repository"
	"github.com/site360/site360-go/internal/dispatch"
	"github.com/site360/site360-go/internal/logger"
)

// ListAlerts returns alerts matching the query filters, newest first.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	filter := repository.AlertFilter{
		SiteID: ctx.QueryParam("site_id"),
		Limit:  parseLimit(ctx, defaultListLimit),
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		if v, err := strconv.Atoi(offsetParam); err == nil && v >= 0 {
			filter.Offset = v
		}
	}
	if dim := ctx.QueryParam("dimension"); dim != "" {
		dimension := control.Dimension(dim)
		if !dimension.Valid() {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown dimension"})
		}
		filter.Dimension = dimension
	}
	if statusParam := ctx.QueryParam("status"); statusParam != "" {
		status := control.AlertStatus(statusParam)
		switch status {
		case control.AlertStatusActive, control.AlertStatusAcknowledged,
			control.AlertStatusResolved, control.AlertStatusDismissed:
			filter.Status = &status
		default:
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown status"})
		}
	}
	if severityParam := ctx.QueryParam("severity"); severityParam != "" {
		severity := control.Severity(severityParam)
		if severity.Rank() == 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown severity"})
		}
		filter.Severity = &severity
	}

	alerts, total, err := c.deps.Alerts.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleError(ctx, err, "Failed to list alerts", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetAlert returns a single alert by id.
func (c *Controller) GetAlert(ctx echo.Context) error {
	alert, err := c.deps.Alerts.GetAlert(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		}
		return c.handleError(ctx, err, "Failed to get alert", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, alert)
}

// actorBody is the request shape for lifecycle operations.
type actorBody struct {
	Actor       string `json:"actor"`
	ActionTaken string `json:"action_taken"`
}

// AcknowledgeAlert marks an active alert as seen.
func (c *Controller) AcknowledgeAlert(ctx echo.Context) error {
	return c.lifecycleOp(ctx, "acknowledge", func(body *actorBody) (*entities.Alert, error) {
		return c.deps.Lifecycle.Acknowledge(ctx.Request().Context(), ctx.Param("id"), body.Actor)
	})
}

// ResolveAlert closes an active or acknowledged alert.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	return c.lifecycleOp(ctx, "resolve", func(body *actorBody) (*entities.Alert, error) {
		return c.deps.Lifecycle.Resolve(ctx.Request().Context(), ctx.Param("id"), body.Actor, body.ActionTaken)
	})
}

// DismissAlert closes an active or acknowledged alert as not actionable.
func (c *Controller) DismissAlert(ctx echo.Context) error {
	return c.lifecycleOp(ctx, "dismiss", func(body *actorBody) (*entities.Alert, error) {
		return c.deps.Lifecycle.Dismiss(ctx.Request().Context(), ctx.Param("id"), body.Actor)
	})
}

// lifecycleOp shares the bind/validate/error-mapping plumbing of the three
// transition endpoints. Invalid transitions map to 409, missing alerts to
// 404.
func (c *Controller) lifecycleOp(ctx echo.Context, op string, apply func(*actorBody) (*entities.Alert, error)) error {
	var body actorBody
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.Actor == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "actor is required"})
	}

	alert, err := apply(&body)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrInvalidTransition):
			return ctx.JSON(http.StatusConflict, map[string]string{"error": "Alert status does not allow this transition"})
		case errors.Is(err, repository.ErrAlertNotFound):
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
		default:
			return c.handleError(ctx, err, "Failed to update alert", http.StatusInternalServerError)
		}
	}

	c.deps.Log.Info("alert transition",
		logger.String("op", op),
		logger.String("alert_id", alert.ID),
		logger.String("actor", body.Actor),
		logger.String("status", string(alert.Status)))
	return ctx.JSON(http.StatusOK, alert)
}
