package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/repository"
)

// GetLatestScores returns the latest score per dimension for a site. The
// response is cached briefly since dashboards poll this endpoint.
func (c *Controller) GetLatestScores(ctx echo.Context) error {
	siteID := ctx.Param("site_id")
	if siteID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "site_id is required"})
	}

	cacheKey := "latest:" + siteID
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			return ctx.JSON(http.StatusOK, cached)
		}
	}

	scores, err := c.deps.Scores.LatestScores(ctx.Request().Context(), siteID)
	if err != nil {
		return c.handleError(ctx, err, "Failed to load latest scores", http.StatusInternalServerError)
	}

	response := map[string]any{
		"site_id": siteID,
		"scores":  scores,
		"count":   len(scores),
	}
	if c.cache != nil {
		c.cache.Set(cacheKey, response, gocache.DefaultExpiration)
	}
	return ctx.JSON(http.StatusOK, response)
}

// GetScoreHistory returns score history for a site, optionally narrowed to
// one dimension and date range.
func (c *Controller) GetScoreHistory(ctx echo.Context) error {
	siteID := ctx.Param("site_id")
	if siteID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "site_id is required"})
	}

	filter := repository.ScoreFilter{
		SiteID:   siteID,
		FromDate: ctx.QueryParam("from"),
		ToDate:   ctx.QueryParam("to"),
		Limit:    parseLimit(ctx, defaultListLimit),
	}
	if dim := ctx.QueryParam("dimension"); dim != "" {
		dimension := control.Dimension(dim)
		if !dimension.Valid() {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown dimension"})
		}
		filter.Dimension = dimension
	}

	scores, err := c.deps.Scores.ListScores(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleError(ctx, err, "Failed to load score history", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"site_id": siteID,
		"scores":  scores,
		"count":   len(scores),
	})
}

// parseLimit reads the limit query parameter, applying the default and the
// hard cap.
func parseLimit(ctx echo.Context, fallback int) int {
	param := ctx.QueryParam("limit")
	if param == "" {
		return fallback
	}
	v, err := strconv.Atoi(param)
	if err != nil || v <= 0 {
		return fallback
	}
	return min(v, maxListLimit)
}
